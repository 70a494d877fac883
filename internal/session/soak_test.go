//go:build soak

package session_test

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mrcyclo/nestopia/internal/core"
	"github.com/mrcyclo/nestopia/internal/device"
	"github.com/mrcyclo/nestopia/internal/engine"
	"github.com/mrcyclo/nestopia/internal/resample"
	"github.com/mrcyclo/nestopia/internal/session"
	"github.com/mrcyclo/nestopia/internal/settings"
	"github.com/mrcyclo/nestopia/internal/testutil"
)

const (
	soakDuration     = 2 * time.Minute
	soakSessions     = 3
	settingsInterval = 2 * time.Second
)

func TestSoakStability(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping soak test in short mode")
	}

	logger, _ := zap.NewDevelopment()

	baselineGoroutines := testutil.Baseline()
	t.Logf("baseline goroutines: %d", baselineGoroutines)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	sessions := make([]*session.Session, soakSessions)
	for i := 0; i < soakSessions; i++ {
		c := core.NewToneCore(48000, 1, core.NTSCFrameRate, 220*float64(i+1), logger)
		sess, err := session.New(c, device.NewNull(logger), engine.Options{Quality: resample.SincFastest}, nil,
			logger.With(zap.String("soak", fmt.Sprint(i))))
		if err != nil {
			t.Fatal(err)
		}
		sessions[i] = sess

		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Run(ctx)
		}()
		sess.Pause(false)
	}

	// Cycle settings while audio flows
	stopCh := make(chan struct{})
	var settingsWG sync.WaitGroup
	for _, sess := range sessions {
		settingsWG.Add(1)
		go func(s *session.Session) {
			defer settingsWG.Done()
			ticker := time.NewTicker(settingsInterval)
			defer ticker.Stop()
			step := 0
			for {
				select {
				case <-stopCh:
					return
				case <-ticker.C:
					step++
					changes := []settings.Change{
						{Key: settings.KeyQuality, Value: json.RawMessage(fmt.Sprint(step % 5))},
						{Key: settings.KeyMute, Value: json.RawMessage(fmt.Sprint(step%4 == 0))},
						{Key: settings.KeySpeed, Value: json.RawMessage(fmt.Sprint(1 + step%2))},
					}
					for _, ch := range changes {
						if err := s.Router.Apply(ch.Key, ch.Value); err != nil {
							t.Errorf("apply %s: %v", ch.Key, err)
						}
					}
					if st := s.Engine.Stats(); st.Buffered >= st.Capacity {
						t.Errorf("ring overfilled: %d/%d", st.Buffered, st.Capacity)
					}
				}
			}
		}(sess)
	}

	// Run for soak duration, sampling goroutines + memory periodically
	deadline := time.Now().Add(soakDuration)
	var memSamples []uint64
	sampleTicker := time.NewTicker(15 * time.Second)
	defer sampleTicker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-sampleTicker.C:
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			memSamples = append(memSamples, ms.HeapInuse)
			st := sessions[0].Engine.Stats()
			t.Logf("goroutines=%d heapInuse=%dKB buffered=%d ratio=%.5f underruns=%d",
				runtime.NumGoroutine(), ms.HeapInuse/1024, st.Buffered, st.Ratio, st.UnderrunSamples)
		default:
			time.Sleep(1 * time.Second)
		}
	}

	// Stop everything
	close(stopCh)
	settingsWG.Wait()
	cancel()
	for _, sess := range sessions {
		sess.Stop()
	}
	wg.Wait()

	// Give goroutines time to drain
	time.Sleep(500 * time.Millisecond)
	runtime.GC()

	testutil.AssertNoGoroutineLeaks(t, baselineGoroutines, 2)

	// Assert memory is not growing monotonically
	if len(memSamples) >= 4 {
		firstAvg := (memSamples[0] + memSamples[1]) / 2
		lastAvg := (memSamples[len(memSamples)-1] + memSamples[len(memSamples)-2]) / 2
		ratio := float64(lastAvg) / float64(firstAvg)
		t.Logf("memory ratio (last/first avg): %.2f", ratio)
		if ratio > 3.0 {
			t.Errorf("possible memory leak: first avg=%dKB, last avg=%dKB, ratio=%.2f",
				firstAvg/1024, lastAvg/1024, ratio)
		}
	}

	t.Log("soak test completed successfully")
}
