package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"panorama/internal/models"
	"panorama/internal/queue"
)

type fakeReportStore struct {
	due      []models.Report
	marked   []int64
	logged   []int64
	pruned   int64
	pruneRan bool
}

func (s *fakeReportStore) DueReports(context.Context) ([]models.Report, error) { return s.due, nil }
func (s *fakeReportStore) MarkReportRun(_ context.Context, id int64) error {
	s.marked = append(s.marked, id)
	return nil
}
func (s *fakeReportStore) LogReportRun(_ context.Context, id int64, _ string) error {
	s.logged = append(s.logged, id)
	return nil
}
func (s *fakeReportStore) PruneReportLog(context.Context) (int64, error) {
	s.pruneRan = true
	return s.pruned, nil
}

type mapResultWriter map[string][]byte

func (m mapResultWriter) Set(key string, value []byte) error {
	m[key] = value
	return nil
}

func TestSchedulerEnqueuesDueReports(t *testing.T) {
	store := &fakeReportStore{due: []models.Report{
		{ID: 1, Name: "weekly-sales", NextRunAt: time.Now()},
		{ID: 2, Name: "daily-traffic", NextRunAt: time.Now()},
	}}
	pub := &countingPublisher{}
	rt := &ReportTasks{Store: store, Pub: pub, Results: mapResultWriter{}}

	task, _ := queue.NewTask("reports.scheduler", nil)
	if err := rt.schedule(context.Background(), task); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	if pub.count() != 2 {
		t.Fatalf("enqueued %d runs, want 2", pub.count())
	}
	var run models.ReportRun
	if err := json.Unmarshal(pub.tasks[0].Payload, &run); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if run.ReportID != 1 || run.Name != "weekly-sales" {
		t.Fatalf("unexpected run payload: %+v", run)
	}
}

func TestRunStoresDocumentAndStampsSchedule(t *testing.T) {
	store := &fakeReportStore{}
	results := mapResultWriter{}
	rt := &ReportTasks{Store: store, Pub: &countingPublisher{}, Results: results, DryRun: true}

	task, err := queue.NewTask("reports.run", models.ReportRun{ReportID: 7, Name: "weekly-sales"})
	if err != nil {
		t.Fatalf("NewTask: %v", err)
	}
	if err := rt.run(context.Background(), task); err != nil {
		t.Fatalf("run: %v", err)
	}

	if _, ok := results["report:7"]; !ok {
		t.Fatal("rendered document missing from results store")
	}
	if len(store.marked) != 1 || store.marked[0] != 7 {
		t.Fatalf("marked = %v, want [7]", store.marked)
	}
	if len(store.logged) != 1 || store.logged[0] != 7 {
		t.Fatalf("logged = %v, want [7]", store.logged)
	}
}

func TestRunRejectsMalformedPayload(t *testing.T) {
	rt := &ReportTasks{Store: &fakeReportStore{}, Pub: &countingPublisher{}, Results: mapResultWriter{}}

	task := &queue.Task{ID: "x", Name: "reports.run", Payload: []byte("not json")}
	if err := rt.run(context.Background(), task); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}

func TestPruneLogRuns(t *testing.T) {
	store := &fakeReportStore{pruned: 12}
	rt := &ReportTasks{Store: store, Pub: &countingPublisher{}, Results: mapResultWriter{}}

	task, _ := queue.NewTask("reports.prune_log", nil)
	if err := rt.pruneLog(context.Background(), task); err != nil {
		t.Fatalf("pruneLog: %v", err)
	}
	if !store.pruneRan {
		t.Fatal("prune never reached the store")
	}
}

func TestReportTasksRegisterUnderReportsImport(t *testing.T) {
	reg := NewRegistry()
	rt := &ReportTasks{Store: &fakeReportStore{}, Pub: &countingPublisher{}, Results: mapResultWriter{}}
	rt.Register(reg)

	handlers := reg.Resolve([]string{ReportsImport})
	for _, name := range []string{"reports.scheduler", "reports.run", "reports.prune_log"} {
		if _, ok := handlers[name]; !ok {
			t.Fatalf("handler %s not registered", name)
		}
	}
}
