package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestToneCoreLayout(t *testing.T) {
	c := NewToneCore(48000, 2, 60, 440, zaptest.NewLogger(t))
	info := c.AudioInfo()
	if info.SPF != 1600 || info.Channels != 2 || info.Rate != 48000 || info.Format != FormatInt16 {
		t.Errorf("unexpected info %+v", info)
	}
	if c.FrameRate() != 60 {
		t.Errorf("expected 60fps, got %v", c.FrameRate())
	}

	ntsc := NewToneCore(48000, 1, 0, 440, zaptest.NewLogger(t))
	if ntsc.FrameRate() != NTSCFrameRate || ntsc.AudioInfo().SPF != 799 {
		t.Errorf("expected NTSC default, got %v fps spf %d", ntsc.FrameRate(), ntsc.AudioInfo().SPF)
	}
}

func TestRunFrameDeliversBlock(t *testing.T) {
	c := NewToneCore(48000, 1, 60, 440, zaptest.NewLogger(t))
	var got []int16
	c.SetAudioCallback(func(block []int16) {
		got = append([]int16(nil), block...)
	})

	c.RunFrame()
	if len(got) != 800 {
		t.Fatalf("expected 800 samples, got %d", len(got))
	}
	nonzero := false
	for _, s := range got {
		if s != 0 {
			nonzero = true
			break
		}
	}
	if !nonzero {
		t.Error("expected an audible tone")
	}
	if c.Frames() != 1 {
		t.Errorf("expected 1 frame, got %d", c.Frames())
	}

	c.SetAudioCallback(nil)
	c.RunFrame()
	if c.Frames() != 2 {
		t.Errorf("frames should advance without a callback, got %d", c.Frames())
	}
}

func TestRunHonoursPause(t *testing.T) {
	c := NewToneCore(48000, 1, 1000, 440, zaptest.NewLogger(t))
	c.SetPaused(true)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Run(ctx)
	}()

	time.Sleep(30 * time.Millisecond)
	if n := c.Frames(); n != 0 {
		t.Errorf("paused core emulated %d frames", n)
	}

	c.SetSpeed(2)
	c.SetPaused(false)
	deadline := time.Now().Add(2 * time.Second)
	for c.Frames() < 4 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	wg.Wait()

	if n := c.Frames(); n < 4 || n%2 != 0 {
		t.Errorf("expected an even frame count of at least 4 at speed 2, got %d", n)
	}
}

func TestDataPushCountsAudio(t *testing.T) {
	c := NewToneCore(48000, 1, 60, 440, zaptest.NewLogger(t))
	c.DataPush(DataAudio, 0, MicInfo, make([]int16, 800))
	c.DataPush(DataKind(7), 0, MicInfo, make([]int16, 10))

	blocks, samples := c.InputStats()
	if blocks != 1 || samples != 800 {
		t.Errorf("expected 1 block of 800 samples, got %d/%d", blocks, samples)
	}
	if c.WantsAudioInput() {
		t.Error("input hint should default off")
	}
	c.SetWantsAudioInput(true)
	if !c.WantsAudioInput() {
		t.Error("expected input hint on")
	}
}
