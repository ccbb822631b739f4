package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"WeatherAlertWatch/internal/domain"
	"WeatherAlertWatch/internal/ports"
)

const resultCodeOK = 1

// Notifier posts broadcast summaries to the push-message endpoint.
type Notifier struct {
	endpoint string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker[reply]
}

var _ ports.Pusher = (*Notifier)(nil)

type reply struct {
	ResultCode    json.Number `json:"result_code"`
	ResultMessage string      `json:"result_message"`
}

// NewNotifier registers the endpoint; a nil client gets a 10s timeout client.
func NewNotifier(endpoint string, client *http.Client) *Notifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Notifier{
		endpoint: endpoint,
		client:   client,
		breaker: gobreaker.NewCircuitBreaker[reply](gobreaker.Settings{
			Name:        "push",
			MaxRequests: 1,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 3
			},
		}),
	}
}

// Push posts weather_event_code and push_message as a form; any result_code other than 1 fails.
func (n *Notifier) Push(ctx context.Context, eventCode int, message string) error {
	if n.endpoint == "" || n.client == nil {
		return dispatchErr("push notifier misconfigured", nil)
	}

	res, err := n.breaker.Execute(func() (reply, error) {
		return n.post(ctx, eventCode, message)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return dispatchErr("push endpoint circuit open", err)
	}
	if err != nil {
		return dispatchErr("push request failed", err)
	}

	code, convErr := strconv.Atoi(res.ResultCode.String())
	if convErr != nil || code != resultCodeOK {
		return dispatchErr(fmt.Sprintf("push rejected (result_code: %s, result_message: %s)", res.ResultCode, res.ResultMessage), nil)
	}
	return nil
}

func (n *Notifier) post(ctx context.Context, eventCode int, message string) (reply, error) {
	form := url.Values{}
	form.Set("weather_event_code", strconv.Itoa(eventCode))
	form.Set("push_message", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return reply{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return reply{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return reply{}, fmt.Errorf("push endpoint error: %s", resp.Status)
	}

	var r reply
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return reply{}, fmt.Errorf("decode response: %w", err)
	}
	return r, nil
}

func dispatchErr(detail string, err error) error {
	return &domain.Error{Kind: domain.KindNotificationDispatch, Detail: detail, Err: err}
}
