package sync

import (
	"fmt"
	base "sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripedLock_HappyPath(t *testing.T) {
	workerCount := 64
	operationCount := 1000

	l := NewStripedLock(4)

	var workerWg base.WaitGroup
	startChan := make(chan struct{})
	data := make([]int, workerCount)

	for i := 0; i < workerCount; i++ {
		workerWg.Add(1)

		go func(workerID int) {
			defer workerWg.Done()

			var opWg base.WaitGroup
			key := []byte(fmt.Sprintf("worker%d", workerID))
			for j := 0; j < operationCount; j++ {
				j := j
				opWg.Add(1)

				go func() {
					defer opWg.Done()

					<-startChan

					if j%2 == 0 {
						mu := l.Get(key)
						mu.Lock()
						data[workerID]++
						mu.Unlock()
					} else {
						unlock := l.Lock(key)
						data[workerID]++
						unlock()
					}
				}()
			}
			opWg.Wait()
		}(i)
	}

	close(startChan)
	workerWg.Wait()

	for _, val := range data {
		assert.EqualValues(t, operationCount, val)
	}
}

func TestStripedLock_SameKeySameLock(t *testing.T) {
	l := NewStripedLock(16)

	for i := 0; i < 100; i++ {
		key := []byte(fmt.Sprintf("mint%d", i))
		assert.Same(t, l.Get(key), l.Get(key))
	}

	single := NewStripedLock(0)
	assert.Same(t, single.Get([]byte("a")), single.Get([]byte("b")))
}
