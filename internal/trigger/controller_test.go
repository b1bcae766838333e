package trigger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/hearken/pkg/provider/tts/mock"
)

const (
	testPhrase   = "導診助手"
	testResponse = "您好，请问需要导诊服务还是安全监护？"
)

func newTestController(sp Speaker, cooldown time.Duration) *Controller {
	return New(Config{
		Phrase:   testPhrase,
		Response: testResponse,
		Cooldown: cooldown,
	}, sp)
}

func TestObserve_SubstringMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"phrase alone", "導診助手", true},
		{"phrase amid surrounding text", "hello, 導診助手, how are you", true},
		{"phonetic but not literal", "daoshen zhushou", false},
		{"partial phrase", "導診", false},
		{"empty text", "", false},
		{"whitespace only", "   \t  ", false},
		{"unrelated speech", "今天天气不错", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sp := &mock.Speaker{}
			c := newTestController(sp, time.Hour)

			got := c.Observe(context.Background(), tt.text)
			if got != tt.want {
				t.Errorf("Observe(%q) = %v, want %v", tt.text, got, tt.want)
			}

			c.Wait()
			wantCalls := 0
			if tt.want {
				wantCalls = 1
			}
			if sp.CallCount() != wantCalls {
				t.Errorf("Speak called %d times, want %d", sp.CallCount(), wantCalls)
			}
		})
	}
}

func TestObserve_RespondedFlipsSynchronously(t *testing.T) {
	t.Parallel()

	// Playback never finishes during the test; the flag must still be set
	// the moment Observe returns.
	block := make(chan struct{})
	defer close(block)
	sp := &mock.Speaker{BlockUntil: block}
	c := newTestController(sp, time.Hour)

	if !c.Observe(context.Background(), testPhrase) {
		t.Fatal("expected first observation to trigger")
	}
	if !c.Responded() {
		t.Fatal("responded must be true immediately after the trigger")
	}
}

func TestObserve_SecondTriggerSuppressedDuringCooldown(t *testing.T) {
	t.Parallel()

	var suppressed int
	sp := &mock.Speaker{}
	c := New(Config{Phrase: testPhrase, Response: testResponse, Cooldown: time.Hour}, sp,
		WithSuppressedHook(func() { suppressed++ }),
	)

	first := c.Observe(context.Background(), "請問 導診助手 在嗎")
	second := c.Observe(context.Background(), "導診助手")

	if !first {
		t.Fatal("expected first observation to trigger")
	}
	if second {
		t.Fatal("second trigger within the cool-down must be suppressed")
	}

	c.Wait()
	if sp.CallCount() != 1 {
		t.Errorf("Speak called %d times across both triggers, want exactly 1", sp.CallCount())
	}
	if suppressed != 1 {
		t.Errorf("suppressed hook fired %d times, want 1", suppressed)
	}
}

func TestObserve_RearmsAfterCooldown(t *testing.T) {
	t.Parallel()

	sp := &mock.Speaker{}
	c := newTestController(sp, 30*time.Millisecond)

	if !c.Observe(context.Background(), testPhrase) {
		t.Fatal("expected first observation to trigger")
	}

	// Poll until the cool-down timer has re-armed the controller.
	deadline := time.After(2 * time.Second)
	for c.Responded() {
		select {
		case <-deadline:
			t.Fatal("controller never re-armed after the cool-down")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if !c.Observe(context.Background(), testPhrase) {
		t.Fatal("expected a fresh trigger after the cool-down elapsed")
	}

	c.Wait()
	if sp.CallCount() != 2 {
		t.Errorf("Speak called %d times, want 2 (one per activation)", sp.CallCount())
	}
}

func TestObserve_ConcurrentTriggersStartOneTask(t *testing.T) {
	t.Parallel()

	sp := &mock.Speaker{}
	c := newTestController(sp, time.Hour)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		started int
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.Observe(context.Background(), testPhrase) {
				mu.Lock()
				started++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	c.Wait()

	if started != 1 {
		t.Errorf("%d response tasks started from concurrent triggers, want 1", started)
	}
	if sp.CallCount() != 1 {
		t.Errorf("Speak called %d times, want 1", sp.CallCount())
	}
}

func TestObserve_SpeakerErrorDoesNotWedgeController(t *testing.T) {
	t.Parallel()

	sp := &mock.Speaker{SpeakError: context.DeadlineExceeded}
	c := newTestController(sp, 20*time.Millisecond)

	if !c.Observe(context.Background(), testPhrase) {
		t.Fatal("expected trigger despite the failing speaker")
	}
	c.Wait()

	// The cool-down still governs re-arming; a playback failure must not
	// leave the controller stuck armed forever.
	deadline := time.After(2 * time.Second)
	for c.Responded() {
		select {
		case <-deadline:
			t.Fatal("controller never re-armed after a playback failure")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestClose_RejectsTriggersAndStopsTimer(t *testing.T) {
	t.Parallel()

	sp := &mock.Speaker{}
	c := newTestController(sp, time.Hour)
	c.Close()

	if c.Observe(context.Background(), testPhrase) {
		t.Fatal("closed controller must not start response tasks")
	}
	if sp.CallCount() != 0 {
		t.Errorf("Speak called %d times on a closed controller, want 0", sp.CallCount())
	}
}

func TestObserve_TriggerHook(t *testing.T) {
	t.Parallel()

	var triggered int
	c := New(Config{Phrase: testPhrase, Response: testResponse, Cooldown: time.Hour},
		&mock.Speaker{},
		WithTriggerHook(func() { triggered++ }),
	)

	c.Observe(context.Background(), testPhrase)
	c.Observe(context.Background(), testPhrase) // suppressed
	c.Wait()

	if triggered != 1 {
		t.Errorf("trigger hook fired %d times, want 1", triggered)
	}
}
