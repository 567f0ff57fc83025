package submission

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tablebook/pkg/logger"
)

// Dispatcher delivers a record to the external form endpoint.
type Dispatcher interface {
	Dispatch(ctx context.Context, rec Record) error
}

// FormDispatcher posts records as url-encoded form data to
// <baseURL>/<formID>/formResponse. The endpoint's reply is not machine-readable,
// so the response is drained and ignored; only failures to build or send the
// request are reported.
type FormDispatcher struct {
	baseURL    string
	formID     string
	mapping    FieldMapping
	httpClient *http.Client
	log        *logger.Logger
}

func NewFormDispatcher(baseURL, formID string, mapping FieldMapping, timeout time.Duration) *FormDispatcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &FormDispatcher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		formID:     formID,
		mapping:    mapping,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.GetDefault(),
	}
}

// WithLogger replaces the dispatcher's logger.
func (d *FormDispatcher) WithLogger(l *logger.Logger) *FormDispatcher {
	d.log = l
	return d
}

// Endpoint returns the form response URL.
func (d *FormDispatcher) Endpoint() string {
	return fmt.Sprintf("%s/%s/formResponse", d.baseURL, d.formID)
}

// Encode maps the record's field values onto the form's field identifiers.
// Fields without a mapping are left out.
func (d *FormDispatcher) Encode(rec Record) url.Values {
	values := rec.FormValues()
	form := url.Values{}
	for _, field := range LogicalFields {
		id := d.mapping[field]
		if id == "" {
			continue
		}
		form.Set(id, values[field])
	}
	return form
}

func (d *FormDispatcher) Dispatch(ctx context.Context, rec Record) error {
	if d.formID == "" {
		d.log.WarnContext(ctx, "Form endpoint not configured, skipping dispatch",
			slog.String("reservation_number", rec.ReservationNumber))
		return nil
	}

	body := d.Encode(rec).Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.Endpoint(), strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("build form request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send form request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	d.log.DebugContext(ctx, "Form response received",
		slog.String("reservation_number", rec.ReservationNumber),
		slog.Int("status", resp.StatusCode))
	return nil
}
