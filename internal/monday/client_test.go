package monday

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ipv4Server struct {
	URL string
	srv *http.Server
}

func newIPv4Server(t *testing.T, handler http.Handler) *ipv4Server {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
			t.Skipf("skipping test: cannot open local listener (%v)", err)
		}
		t.Fatalf("listen tcp4: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic(fmt.Sprintf("test server serve: %v", err))
		}
	}()
	s := &ipv4Server{URL: "http://" + ln.Addr().String(), srv: srv}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.srv.Shutdown(ctx)
	})
	return s
}

// recorder captures decoded requests and replies with scripted responses.
type recorder struct {
	mu       sync.Mutex
	requests []graphQLRequest
	auth     []string
}

func (r *recorder) handler(t *testing.T, reply func(i int, req graphQLRequest, w http.ResponseWriter)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var gr graphQLRequest
		if err := json.NewDecoder(req.Body).Decode(&gr); err != nil {
			t.Errorf("decode request: %v", err)
		}
		r.mu.Lock()
		i := len(r.requests)
		r.requests = append(r.requests, gr)
		r.auth = append(r.auth, req.Header.Get("Authorization"))
		r.mu.Unlock()
		reply(i, gr, w)
	})
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type sleepLog struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepLog) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}

func newTestClient(url string, attempts int, sl *sleepLog) *Client {
	c := NewClientWithURL("test-key", 5*time.Second, attempts, 100*time.Millisecond, url)
	c.sleep = sl.sleep
	return c
}

func item(id, name string, values ...ColumnValue) map[string]any {
	return map[string]any{"id": id, "name": name, "group": map[string]any{"id": "g1", "title": "Active"}, "column_values": values}
}

func TestBoardItemsFollowsCursor(t *testing.T) {
	rec := &recorder{}
	srv := newIPv4Server(t, rec.handler(t, func(i int, req graphQLRequest, w http.ResponseWriter) {
		switch i {
		case 0:
			writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"boards": []any{map[string]any{
				"id": "42", "name": "Deals",
				"columns": []any{map[string]any{"id": "status", "title": "Stage", "type": "status"}},
				"items_page": map[string]any{
					"cursor": "c1",
					"items": []any{
						item("1", "Acme", ColumnValue{ID: "status", Text: "Won", Type: "status"}),
						item("2", "Beta"),
					},
				},
			}}}})
		case 1:
			assert.Equal(t, "c1", req.Variables["cursor"])
			writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"next_items_page": map[string]any{
				"cursor": "c2",
				"items":  []any{item("3", "Gamma")},
			}}})
		default:
			writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"next_items_page": map[string]any{
				"cursor": nil,
				"items":  []any{item("4", "Delta")},
			}}})
		}
	}))

	sl := &sleepLog{}
	c := newTestClient(srv.URL, 3, sl)
	board, err := c.BoardItems(context.Background(), "42", 2)
	require.NoError(t, err)
	require.Len(t, board.Items, 4)
	assert.Equal(t, "Deals", board.Name)
	assert.Equal(t, []string{"1", "2", "3", "4"}, []string{board.Items[0].ID, board.Items[1].ID, board.Items[2].ID, board.Items[3].ID})
	assert.Equal(t, "Won", board.Items[0].ColumnValues[0].Text)
	assert.Equal(t, "Active", board.Items[0].Group.Title)
	assert.Equal(t, map[string]string{"status": "Stage"}, board.ColumnTitles())
	assert.Equal(t, 3, rec.count())
	assert.Equal(t, "test-key", rec.auth[0])
	assert.Equal(t, float64(2), rec.requests[0].Variables["limit"])
	assert.Empty(t, sl.delays)
}

func TestBoardItemsMissingBoardIsEmpty(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"boards": []any{}}})
	}))
	c := newTestClient(srv.URL, 3, &sleepLog{})
	board, err := c.BoardItems(context.Background(), "7", 0)
	require.NoError(t, err)
	assert.Equal(t, "7", board.ID)
	assert.Empty(t, board.Items)
}

func TestRetriesOnRateLimitThenSucceeds(t *testing.T) {
	rec := &recorder{}
	srv := newIPv4Server(t, rec.handler(t, func(i int, _ graphQLRequest, w http.ResponseWriter) {
		switch i {
		case 0:
			writeJSON(w, http.StatusTooManyRequests, map[string]any{"error_message": "slow down"})
		case 1:
			writeJSON(w, http.StatusOK, map[string]any{"errors": []any{map[string]any{"message": "Complexity budget exhausted"}}})
		default:
			writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"boards": []any{map[string]any{"id": "1", "name": "Work Orders"}}}})
		}
	}))

	sl := &sleepLog{}
	c := newTestClient(srv.URL, 3, sl)
	boards, err := c.Boards(context.Background())
	require.NoError(t, err)
	require.Len(t, boards, 1)
	assert.Equal(t, 3, rec.count())
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, sl.delays)
}

func TestRetriesExhaustedReturnsTransportError(t *testing.T) {
	rec := &recorder{}
	srv := newIPv4Server(t, rec.handler(t, func(_ int, _ graphQLRequest, w http.ResponseWriter) {
		writeJSON(w, http.StatusOK, map[string]any{"errors": []any{map[string]any{"message": "Rate limit exceeded"}}})
	}))

	sl := &sleepLog{}
	c := newTestClient(srv.URL, 3, sl)
	_, err := c.Boards(context.Background())
	var terr *TransportError
	require.True(t, errors.As(err, &terr), "want TransportError, got %v", err)
	assert.Equal(t, 3, terr.Attempts)
	assert.Contains(t, terr.Reason, "Rate limit")
	assert.Equal(t, 3, rec.count())
	assert.Len(t, sl.delays, 2, "no sleep after the final attempt")
}

func TestNonRetryablePayloadErrorFailsFast(t *testing.T) {
	rec := &recorder{}
	srv := newIPv4Server(t, rec.handler(t, func(_ int, _ graphQLRequest, w http.ResponseWriter) {
		writeJSON(w, http.StatusOK, map[string]any{"errors": []any{map[string]any{"message": "Field 'bogus' doesn't exist"}}})
	}))
	c := newTestClient(srv.URL, 3, &sleepLog{})
	_, err := c.Boards(context.Background())
	var rerr *RemoteError
	require.True(t, errors.As(err, &rerr))
	assert.Contains(t, rerr.Error(), "bogus")
	assert.Equal(t, 1, rec.count())
}

func TestAuthFailures(t *testing.T) {
	rec := &recorder{}
	srv := newIPv4Server(t, rec.handler(t, func(_ int, _ graphQLRequest, w http.ResponseWriter) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"errors": []any{map[string]any{"message": "Not Authenticated"}}})
	}))

	c := newTestClient(srv.URL, 3, &sleepLog{})
	_, err := c.Boards(context.Background())
	var aerr *AuthError
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, http.StatusUnauthorized, aerr.StatusCode)
	assert.Equal(t, 1, rec.count())

	missing := NewClientWithURL("", time.Second, 3, time.Millisecond, srv.URL)
	_, err = missing.Boards(context.Background())
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, 1, rec.count(), "no request without a key")
}

func TestServerErrorIsRemoteError(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Request-Id", "req-9")
		w.WriteHeader(http.StatusInternalServerError)
	}))
	c := newTestClient(srv.URL, 3, &sleepLog{})
	_, err := c.Boards(context.Background())
	var rerr *RemoteError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, http.StatusInternalServerError, rerr.StatusCode)
	assert.Equal(t, "req-9", rerr.RequestID)
}

func TestConnectionFailureIsRetried(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("cannot open local listener: %v", err)
	}
	url := "http://" + ln.Addr().String()
	require.NoError(t, ln.Close())

	sl := &sleepLog{}
	c := newTestClient(url, 2, sl)
	_, err = c.Boards(context.Background())
	var terr *TransportError
	require.True(t, errors.As(err, &terr), "want TransportError, got %v", err)
	assert.Equal(t, "connection failed", terr.Reason)
	assert.Len(t, sl.delays, 1)
}

func TestCancelledContextStopsRetrying(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, map[string]any{})
	}))
	ctx, cancel := context.WithCancel(context.Background())
	c := NewClientWithURL("k", time.Second, 5, time.Millisecond, srv.URL)
	c.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}
	_, err := c.Boards(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFindBoardByNameAndHealth(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"boards": []any{
			map[string]any{"id": "1", "name": "Work Orders Tracker"},
			map[string]any{"id": "2", "name": "Deal funnel"},
		}}})
	}))
	c := newTestClient(srv.URL, 1, &sleepLog{})

	b, err := c.FindBoardByName(context.Background(), "deal")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "2", b.ID)

	b, err = c.FindBoardByName(context.Background(), "invoices")
	require.NoError(t, err)
	assert.Nil(t, b)

	h := c.HealthCheck(context.Background())
	assert.Equal(t, "connected", h.Status)
	assert.Equal(t, 2, h.BoardsFound)

	down := NewClientWithURL("", time.Second, 1, time.Millisecond, srv.URL)
	h = down.HealthCheck(context.Background())
	assert.Equal(t, "disconnected", h.Status)
	assert.NotEmpty(t, h.Error)
}

func TestBoardColumns(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"boards": []any{map[string]any{
			"columns": []any{map[string]any{"id": "numbers", "title": "Deal Value", "type": "numbers", "settings_str": "{}"}},
		}}}})
	}))
	c := newTestClient(srv.URL, 1, &sleepLog{})
	cols, err := c.BoardColumns(context.Background(), "2")
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Equal(t, "Deal Value", cols[0].Title)
	assert.Equal(t, "{}", cols[0].Settings)
}
