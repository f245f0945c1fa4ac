package support

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cucumber/godog"
)

// dogJPEG is a minimal but valid-magic-byte JPEG stand-in; the fake
// detector only inspects the magic bytes and the confidence threshold, not
// real pixel content, so its body need not decode to a real image.
var dogJPEG = append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, []byte("fake-jpeg-body-containing-a-dog")...)

type concurrentRun struct {
	statuses []int
}

var lastConcurrent concurrentRun

// RegisterSteps wires every step phrase used by features/detection.feature
// onto tc, mirroring the teacher's per-context step-registration shape
// (RegisterServerSteps, RegisterImageSteps, ...) collapsed into one file
// since blue-onyx has a single HTTP surface to exercise.
func (tc *TestContext) RegisterSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a running server with queue size (\d+) and request timeout ([\d.]+) seconds$`, tc.aRunningServer)
	sc.Step(`^the detector takes (\d+) seconds per request$`, tc.theDetectorTakesSeconds)
	sc.Step(`^I POST a JPEG frame containing a dog$`, tc.iPostADogFrame)
	sc.Step(`^I POST a JPEG frame containing a dog with min_confidence ([\d.]+)$`, tc.iPostADogFrameWithOverride)
	sc.Step(`^I POST the raw body "([^"]*)" as the image field$`, tc.iPostRawBody)
	sc.Step(`^I fire (\d+) concurrent detection requests$`, tc.iFireConcurrentRequests)
	sc.Step(`^I GET the stats endpoint$`, tc.iGetStats)

	sc.Step(`^the response status is (\d+)$`, tc.theResponseStatusIs)
	sc.Step(`^the response is successful with at least (\d+) detection$`, tc.theResponseIsSuccessfulWithAtLeast)
	sc.Step(`^the response is successful with (\d+) detections$`, tc.theResponseIsSuccessfulWithExactly)
	sc.Step(`^the response is unsuccessful with (\d+) detections$`, tc.theResponseIsUnsuccessfulWithCount)
	sc.Step(`^the response is unsuccessful with a timeout message$`, tc.theResponseIsUnsuccessfulTimeout)
	sc.Step(`^a detection with label "([^"]*)" and confidence at least ([\d.]+) is present$`, tc.aDetectionWithLabelIsPresent)
	sc.Step(`^the server still accepts further requests$`, tc.theServerStillAcceptsRequests)

	sc.Step(`^exactly (\d+) of the concurrent responses succeeded$`, tc.exactlyNConcurrentSucceeded)
	sc.Step(`^exactly (\d+) of the concurrent responses were busy$`, tc.exactlyNConcurrentBusy)
	sc.Step(`^dropped_requests increased by (\d+)$`, tc.droppedRequestsIncreasedBy)

	sc.Step(`^the stats response has successful_requests at least (\d+)$`, tc.statsHasSuccessfulAtLeast)
	sc.Step(`^the stats response has dropped_requests at least (\d+)$`, tc.statsHasDroppedAtLeast)
	sc.Step(`^the stats response has a non-empty execution_provider$`, tc.statsHasExecutionProvider)

	sc.After(func(_ interface{}, _ *godog.Scenario, err error) (interface{}, error) {
		tc.Close()
		return nil, err
	})
}

func (tc *TestContext) aRunningServer(queueSize int, timeoutSec float64) error {
	tc.StartServer(queueSize, timeoutSec)
	tc.DroppedBefore = tc.Stats.Snapshot().DroppedRequests
	return nil
}

func (tc *TestContext) theDetectorTakesSeconds(seconds int) error {
	tc.Detector.Delay = time.Duration(seconds) * time.Second
	return nil
}

func (tc *TestContext) iPostADogFrame() error {
	return tc.PostJPEG(dogJPEG, nil)
}

func (tc *TestContext) iPostADogFrameWithOverride(minConfidence float64) error {
	return tc.PostJPEG(dogJPEG, &minConfidence)
}

func (tc *TestContext) iPostRawBody(raw string) error {
	return tc.PostJPEG([]byte(raw), nil)
}

func (tc *TestContext) iFireConcurrentRequests(n int) error {
	responses := tc.fireConcurrent(n, dogJPEG)
	statuses := make([]int, 0, n)
	for _, r := range responses {
		if r == nil {
			statuses = append(statuses, 0)
			continue
		}
		statuses = append(statuses, r.StatusCode)
		_ = r.Body.Close()
	}
	lastConcurrent = concurrentRun{statuses: statuses}
	return nil
}

func (tc *TestContext) iGetStats() error {
	return tc.GetStats()
}

func (tc *TestContext) theResponseStatusIs(expected int) error {
	if tc.LastStatusCode != expected {
		return fmt.Errorf("expected status %d, got %d (body: %s)", expected, tc.LastStatusCode, tc.LastBody)
	}
	return nil
}

func (tc *TestContext) theResponseIsSuccessfulWithAtLeast(minCount int) error {
	success, _ := tc.LastJSON["success"].(bool)
	count, _ := tc.LastJSON["count"].(float64)
	if !success {
		return fmt.Errorf("expected success=true, got %v (body: %s)", tc.LastJSON["success"], tc.LastBody)
	}
	if int(count) < minCount {
		return fmt.Errorf("expected count >= %d, got %v", minCount, count)
	}
	return nil
}

func (tc *TestContext) theResponseIsSuccessfulWithExactly(expected int) error {
	success, _ := tc.LastJSON["success"].(bool)
	count, _ := tc.LastJSON["count"].(float64)
	if !success {
		return fmt.Errorf("expected success=true, got %v", tc.LastJSON["success"])
	}
	if int(count) != expected {
		return fmt.Errorf("expected count == %d, got %v", expected, count)
	}
	return nil
}

func (tc *TestContext) theResponseIsUnsuccessfulWithCount(expected int) error {
	success, _ := tc.LastJSON["success"].(bool)
	count, _ := tc.LastJSON["count"].(float64)
	if success {
		return fmt.Errorf("expected success=false, got true")
	}
	if int(count) != expected {
		return fmt.Errorf("expected count == %d, got %v", expected, count)
	}
	return nil
}

func (tc *TestContext) theResponseIsUnsuccessfulTimeout() error {
	success, _ := tc.LastJSON["success"].(bool)
	if success {
		return fmt.Errorf("expected success=false for a timeout, got true")
	}
	message, _ := tc.LastJSON["message"].(string)
	if message == "" {
		return fmt.Errorf("expected a non-empty timeout message")
	}
	if !strings.Contains(message, "timed out") {
		return fmt.Errorf("expected a timeout message, got %q", message)
	}
	return nil
}

func (tc *TestContext) aDetectionWithLabelIsPresent(label string, minConfidence float64) error {
	predictions, _ := tc.LastJSON["predictions"].([]any)
	for _, p := range predictions {
		pred, ok := p.(map[string]any)
		if !ok {
			continue
		}
		gotLabel, _ := pred["label"].(string)
		gotConfidence, _ := pred["confidence"].(float64)
		if gotLabel == label && gotConfidence >= minConfidence {
			return nil
		}
	}
	return fmt.Errorf("no prediction with label %q and confidence >= %v found in %v", label, minConfidence, predictions)
}

func (tc *TestContext) theServerStillAcceptsRequests() error {
	return tc.PostJPEG(dogJPEG, nil)
}

func (tc *TestContext) exactlyNConcurrentSucceeded(expected int) error {
	got := countStatus(lastConcurrent.statuses, http.StatusOK)
	if got != expected {
		return fmt.Errorf("expected %d successful concurrent responses, got %d (statuses: %v)", expected, got, lastConcurrent.statuses)
	}
	return nil
}

func (tc *TestContext) exactlyNConcurrentBusy(expected int) error {
	got := countStatus(lastConcurrent.statuses, http.StatusServiceUnavailable)
	if got != expected {
		return fmt.Errorf("expected %d busy concurrent responses, got %d (statuses: %v)", expected, got, lastConcurrent.statuses)
	}
	return nil
}

func (tc *TestContext) droppedRequestsIncreasedBy(delta int64) error {
	after := tc.Stats.Snapshot().DroppedRequests
	if after-tc.DroppedBefore != delta {
		return fmt.Errorf("expected dropped_requests to increase by %d, went from %d to %d", delta, tc.DroppedBefore, after)
	}
	return nil
}

func (tc *TestContext) statsHasSuccessfulAtLeast(min float64) error {
	got, _ := tc.LastJSON["successful_requests"].(float64)
	if got < min {
		return fmt.Errorf("expected successful_requests >= %v, got %v", min, got)
	}
	return nil
}

func (tc *TestContext) statsHasDroppedAtLeast(min float64) error {
	got, _ := tc.LastJSON["dropped_requests"].(float64)
	if got < min {
		return fmt.Errorf("expected dropped_requests >= %v, got %v", min, got)
	}
	return nil
}

func (tc *TestContext) statsHasExecutionProvider() error {
	got, _ := tc.LastJSON["execution_provider"].(string)
	if got == "" {
		return fmt.Errorf("expected a non-empty execution_provider")
	}
	return nil
}

func countStatus(statuses []int, target int) int {
	n := 0
	for _, s := range statuses {
		if s == target {
			n++
		}
	}
	return n
}
