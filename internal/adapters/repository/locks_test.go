package repository_test

import (
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/medalist/internal/adapters/repository"
)

func TestLockRegistry(t *testing.T) {
	Convey("Given a lock registry", t, func() {
		reg := repository.NewLockRegistry()

		Convey("When many goroutines contend on one key", func() {
			const workers = 50
			counter := 0
			var wg sync.WaitGroup
			wg.Add(workers)
			for i := 0; i < workers; i++ {
				go func() {
					defer wg.Done()
					unlock := reg.Lock("participant-1")
					defer unlock()
					counter++
				}()
			}
			wg.Wait()

			Convey("Then the critical section is serialized", func() {
				So(counter, ShouldEqual, workers)
			})

			Convey("And released keys are evicted from the registry", func() {
				So(reg.Size(), ShouldEqual, 0)
			})
		})

		Convey("When two keys are held at once", func() {
			unlockA := reg.Lock("a")
			unlockB := reg.Lock("b")

			Convey("Then both are tracked until released", func() {
				So(reg.Size(), ShouldEqual, 2)
				unlockA()
				So(reg.Size(), ShouldEqual, 1)
				unlockB()
				So(reg.Size(), ShouldEqual, 0)
			})
		})
	})
}
