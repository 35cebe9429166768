package probe

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/HerbHall/rangeping/pkg/models"
)

// ErrUnparseable is returned when probe output carries no loss figure.
var ErrUnparseable = errors.New("no packet loss figure in probe output")

// lossPattern matches "25% loss" (Windows) and "25% packet loss" (Linux, BSD).
var lossPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)%\s*(?:packet\s+)?loss`)

// unreachableMarker appears in "Destination host unreachable" and
// "Destination net unreachable" replies.
const unreachableMarker = "unreachable"

// Classify maps raw probe output to an outcome. The unreachable marker wins
// over the loss figure, since routers answer with it while the loss line
// still reports partial replies.
func Classify(raw string) (models.Outcome, error) {
	if strings.Contains(strings.ToLower(raw), unreachableMarker) {
		return models.OutcomeDestinationUnreachable, nil
	}

	loss, err := Loss(raw)
	if err != nil {
		return models.OutcomeProbeError, err
	}

	switch {
	case loss == 0:
		return models.OutcomeReachable, nil
	case loss >= 100:
		return models.OutcomeUnreachable, nil
	default:
		return models.OutcomePartialLoss, nil
	}
}

// Loss extracts the first packet loss percentage from raw probe output.
func Loss(raw string) (float64, error) {
	m := lossPattern.FindStringSubmatch(raw)
	if m == nil {
		return 0, ErrUnparseable
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, ErrUnparseable
	}
	return v, nil
}
