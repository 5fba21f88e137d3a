package emission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"poolwatch/internal/domain"
)

// HTTPSink posts events to the monitor-alert endpoint (§6 "Downstream
// sink") as JSON. Grounded on internal/solana.HTTPClient's plain
// net/http + encoding/json request shape; unlike that client it never
// retries — §4.H requires the sink path to fail silently rather than
// hold up the dispatcher.
type HTTPSink struct {
	endpoint string
	client   *http.Client
}

// NewHTTPSink constructs a sink posting to <endpoint>/agents/command.
func NewHTTPSink(endpoint string) *HTTPSink {
	return &HTTPSink{
		endpoint: endpoint + "/agents/command",
		client:   &http.Client{Timeout: sinkTimeout},
	}
}

// alert is the §6 wire shape for a single monitor alert.
type alert struct {
	Agent    string    `json:"agent"`
	Type     string    `json:"type"`
	Message  string    `json:"message"`
	Severity string    `json:"severity"`
	Data     alertData `json:"data"`
}

// alertData is the alert's free-form payload; all fields are optional
// per §6 (`{mint?,dex?,poolAddress?,graduatedFrom?,bondingCurveTime?,...}`).
type alertData struct {
	Mint             string `json:"mint,omitempty"`
	DEX              string `json:"dex,omitempty"`
	PoolAddress      string `json:"poolAddress,omitempty"`
	GraduatedFrom    string `json:"graduatedFrom,omitempty"`
	BondingCurveTime uint64 `json:"bondingCurveTime,omitempty"`
}

type alertPayload struct {
	Type  string `json:"type"`
	Alert alert  `json:"alert"`
}

type alertBatchPayload struct {
	Type   string  `json:"type"`
	Alerts []alert `json:"alerts"`
}

// Post sends a single alert.
func (s *HTTPSink) Post(ctx context.Context, ev domain.PoolEvent) error {
	return s.post(ctx, alertPayload{Type: "monitor_alert", Alert: toAlert(ev)})
}

// PostBatch sends N alerts in one request (§4.H's atomic batch dispatch).
func (s *HTTPSink) PostBatch(ctx context.Context, evs []domain.PoolEvent) error {
	alerts := make([]alert, len(evs))
	for i, ev := range evs {
		alerts[i] = toAlert(ev)
	}
	return s.post(ctx, alertBatchPayload{Type: "monitor_alert_batch", Alerts: alerts})
}

// toAlert maps an internal PoolEvent onto the §6 alert envelope. Three of
// the four downstream agents named in §6 correspond to this binary's
// three distinct kinds of event: SCOUT reports new discoveries, HUNTER
// reports graduations, ANALYST reports everything in between
// (TRADER is a downstream execution agent this binary never speaks for).
func toAlert(ev domain.PoolEvent) alert {
	return alert{
		Agent:    alertAgent(ev.Kind),
		Type:     alertType(ev.Kind),
		Message:  alertMessage(ev),
		Severity: alertSeverity(ev.Kind),
		Data:     alertDataFor(ev),
	}
}

func alertAgent(kind domain.PoolEventKind) string {
	switch kind {
	case domain.NewPool:
		return "SCOUT"
	case domain.Graduation:
		return "HUNTER"
	default:
		return "ANALYST"
	}
}

// alertType maps onto §6's alert.type enum
// ("discovery"|"alert"|"analysis"|"council"|"graduation"), which is not
// the same enumeration as PoolEventKind.String() (used by the journal):
// PriceUpdate has no dedicated alert type, so it reports as "alert".
func alertType(kind domain.PoolEventKind) string {
	switch kind {
	case domain.NewPool:
		return "discovery"
	case domain.Graduation:
		return "graduation"
	default:
		return "alert"
	}
}

func alertSeverity(kind domain.PoolEventKind) string {
	switch kind {
	case domain.Graduation:
		return "critical"
	case domain.PriceUpdate:
		return "warning"
	default:
		return "info"
	}
}

func alertMessage(ev domain.PoolEvent) string {
	switch ev.Kind {
	case domain.NewPool:
		return fmt.Sprintf("new %s pool discovered for %s", ev.Pool.DEX, ev.Pool.BaseMint)
	case domain.Graduation:
		return fmt.Sprintf("%s graduated to %s", ev.Pool.BaseMint, ev.Pool.DEX)
	default:
		return fmt.Sprintf("%s price update on %s", ev.Pool.BaseMint, ev.Pool.DEX)
	}
}

func alertDataFor(ev domain.PoolEvent) alertData {
	data := alertData{
		Mint:        ev.Pool.BaseMint.String(),
		DEX:         ev.Pool.DEX.String(),
		PoolAddress: ev.Pool.PoolAddress.String(),
	}
	if ev.HasGraduatedFrom {
		data.GraduatedFrom = ev.GraduatedFrom.String()
	}
	if ev.HasBondingCurveDurMs {
		data.BondingCurveTime = ev.BondingCurveDurationMs
	}
	return data
}

func (s *HTTPSink) post(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal sink payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sink request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sink request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("sink responded %d", resp.StatusCode)
	}
	return nil
}
