package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	worker "github.com/okian/tradeval/internal/adapters/mq/worker"
	"github.com/okian/tradeval/internal/domain/model"
	logging "github.com/okian/tradeval/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockQueue struct {
	jobs chan worker.Job
	once sync.Once
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan worker.Job, 16)}
}

func (mq *mockQueue) Dequeue(context.Context) <-chan worker.Job { return mq.jobs }

func (mq *mockQueue) Close() error {
	mq.once.Do(func() { close(mq.jobs) })
	return nil
}

type mockScorer struct {
	mu     sync.Mutex
	errors map[model.AssetID]error
}

func (ms *mockScorer) ScoreJob(_ context.Context, j worker.Job) (model.ScoredAsset, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if err, ok := ms.errors[j.AssetID]; ok {
		return model.ScoredAsset{}, err
	}
	asset := model.NewPick(model.PickAsset{ID: j.AssetID, Year: 2026, Round: 1})
	return model.ScoredAsset{Asset: asset, Composite: 42, ConfigVersion: j.ConfigVersion}, nil
}

type mockPublisher struct {
	mu        sync.Mutex
	published map[string]model.ScoredAsset
	fail      error
}

func (mp *mockPublisher) Publish(_ context.Context, league string, s model.ScoredAsset) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	if mp.fail != nil {
		return mp.fail
	}
	mp.published[league+"/"+string(s.ID())] = s
	return nil
}

func (mp *mockPublisher) get(key string) (model.ScoredAsset, bool) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	s, ok := mp.published[key]
	return s, ok
}

type doneLog struct {
	mu   sync.Mutex
	errs map[string]error
	ch   chan string
}

func newDoneLog() *doneLog {
	return &doneLog{errs: map[string]error{}, ch: make(chan string, 16)}
}

func (d *doneLog) record(j worker.Job, err error) {
	d.mu.Lock()
	d.errs[j.Key] = err
	d.mu.Unlock()
	d.ch <- j.Key
}

func (d *doneLog) wait(key string) error {
	timeout := time.After(time.Second)
	for {
		d.mu.Lock()
		err, ok := d.errs[key]
		d.mu.Unlock()
		if ok {
			return err
		}
		select {
		case <-d.ch:
		case <-timeout:
			return errors.New("timed out waiting for " + key)
		}
	}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker over mock collaborators", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		scorer := &mockScorer{errors: map[model.AssetID]error{}}
		pub := &mockPublisher{published: map[string]model.ScoredAsset{}}
		done := newDoneLog()

		w := worker.NewInMemoryWorker(q, scorer, pub,
			worker.WithName("test-worker"),
			worker.WithOnDone(done.record),
		)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a job is processed", func() {
			q.jobs <- worker.Job{LeagueID: "lg", AssetID: "pk1", ConfigVersion: 2, Key: "lg/pk1/v2"}
			err := done.wait("lg/pk1/v2")

			convey.Convey("Then the scored asset is published and the job released", func() {
				convey.So(err, convey.ShouldBeNil)
				s, ok := pub.get("lg/pk1")
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(s.ConfigVersion, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When scoring fails", func() {
			boom := errors.New("unknown asset")
			scorer.errors["pk2"] = boom
			q.jobs <- worker.Job{LeagueID: "lg", AssetID: "pk2", Key: "lg/pk2/v1"}
			err := done.wait("lg/pk2/v1")

			convey.Convey("Then nothing is published and the error reaches the callback", func() {
				convey.So(errors.Is(err, boom), convey.ShouldBeTrue)
				_, ok := pub.get("lg/pk2")
				convey.So(ok, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When publishing fails", func() {
			pub.mu.Lock()
			pub.fail = errors.New("chart unavailable")
			pub.mu.Unlock()
			q.jobs <- worker.Job{LeagueID: "lg", AssetID: "pk3", Key: "lg/pk3/v1"}
			err := done.wait("lg/pk3/v1")

			convey.Convey("Then the error is reported", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "publish lg/pk3/v1")
			})
		})

		convey.Convey("When shutting down", func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer shutdownCancel()

			convey.Convey("Then it stops gracefully", func() {
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool of three workers", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		scorer := &mockScorer{errors: map[model.AssetID]error{}}
		pub := &mockPublisher{published: map[string]model.ScoredAsset{}}
		done := newDoneLog()
		pool := worker.NewPool(3, q, scorer, pub, worker.WithOnDone(done.record))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		convey.So(pool.Size(), convey.ShouldEqual, 3)

		convey.Convey("When several jobs are queued", func() {
			keys := []string{"lg/a/v1", "lg/b/v1", "lg/c/v1"}
			for i, k := range keys {
				q.jobs <- worker.Job{LeagueID: "lg", AssetID: model.AssetID([]string{"a", "b", "c"}[i]), ConfigVersion: 1, Key: k}
			}
			var errs []error
			for _, k := range keys {
				errs = append(errs, done.wait(k))
			}

			convey.Convey("Then every job is published once", func() {
				for _, err := range errs {
					convey.So(err, convey.ShouldBeNil)
				}
				for _, id := range []string{"a", "b", "c"} {
					_, ok := pub.get("lg/" + id)
					convey.So(ok, convey.ShouldBeTrue)
				}
			})
		})

		convey.Convey("When the pool shuts down", func() {
			err := pool.Shutdown(context.Background())

			convey.Convey("Then the queue is closed", func() {
				convey.So(err, convey.ShouldBeNil)
				_, open := <-q.jobs
				convey.So(open, convey.ShouldBeFalse)
			})
		})
	})
}
