package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tubechat/backend/internal/retrieval"
)

func newChatHandler(relay Relay, streamErr error) (*Handler, *mockRetriever, *mockCompleter) {
	retriever := new(mockRetriever)
	completer := new(mockCompleter)
	retriever.On("TopChunks", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]retrieval.Match{{Text: "transcript chunk"}}, nil).Maybe()
	if streamErr != nil {
		completer.On("Stream", mock.Anything, mock.Anything).Return(nil, streamErr)
	} else {
		completer.On("Stream", mock.Anything, mock.Anything).Return(relay, nil)
	}
	return NewHandler(NewService(retriever, completer, 3)), retriever, completer
}

func decodeFrames(t *testing.T, body string) []Event {
	t.Helper()
	var events []Event
	for _, frame := range strings.Split(body, "\n\n") {
		frame = strings.TrimSpace(frame)
		if frame == "" {
			continue
		}
		require.True(t, strings.HasPrefix(frame, "data: "), "unexpected frame: %q", frame)
		var ev Event
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frame, "data: ")), &ev))
		events = append(events, ev)
	}
	return events
}

func TestHandler_Chat(t *testing.T) {
	relay := &sliceRelay{deltas: []string{"Hello", " world"}}
	handler, _, _ := newChatHandler(relay, nil)

	req := httptest.NewRequest("POST", "/api/chat", strings.NewReader(`{"message":"hi","videoId":"abc123"}`))
	rec := httptest.NewRecorder()
	handler.Chat(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	events := decodeFrames(t, rec.Body.String())
	require.Len(t, events, 3)
	assert.Equal(t, Event{Content: "Hello"}, events[0])
	assert.Equal(t, Event{Content: " world"}, events[1])
	assert.Equal(t, Event{Done: true}, events[2])
	assert.True(t, relay.closed)
}

func TestHandler_Chat_EmptyAnswerStillSendsDone(t *testing.T) {
	handler, _, _ := newChatHandler(&sliceRelay{}, nil)

	req := httptest.NewRequest("POST", "/api/chat", strings.NewReader(`{"message":"hi"}`))
	rec := httptest.NewRecorder()
	handler.Chat(rec, req)

	events := decodeFrames(t, rec.Body.String())
	require.Len(t, events, 1)
	assert.Equal(t, Event{Done: true}, events[0])
}

func TestHandler_Chat_MissingMessage(t *testing.T) {
	handler, _, completer := newChatHandler(&sliceRelay{}, nil)

	req := httptest.NewRequest("POST", "/api/chat", strings.NewReader(`{"videoId":"abc123"}`))
	rec := httptest.NewRecorder()
	handler.Chat(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	errObj := resp["error"].(map[string]interface{})
	assert.Equal(t, "VALIDATION_ERROR", errObj["code"])

	completer.AssertNotCalled(t, "Stream", mock.Anything, mock.Anything)
}

func TestHandler_Chat_InvalidJSON(t *testing.T) {
	handler, _, _ := newChatHandler(&sliceRelay{}, nil)

	req := httptest.NewRequest("POST", "/api/chat", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	handler.Chat(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	errObj := resp["error"].(map[string]interface{})
	assert.Equal(t, "INVALID_JSON", errObj["code"])
}

func TestHandler_Chat_UpstreamUnavailable(t *testing.T) {
	handler, _, _ := newChatHandler(nil, errors.New("connection refused"))

	req := httptest.NewRequest("POST", "/api/chat", strings.NewReader(`{"message":"hi","videoId":"abc123"}`))
	rec := httptest.NewRecorder()
	handler.Chat(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	errObj := resp["error"].(map[string]interface{})
	assert.Equal(t, "CHAT_ERROR", errObj["code"])
}

// disconnectingRelay cancels the request context during its second read, as
// if the client went away mid-answer.
type disconnectingRelay struct {
	cancel context.CancelFunc
	calls  int
	closed bool
}

func (r *disconnectingRelay) Next() (string, error) {
	r.calls++
	switch r.calls {
	case 1:
		return "first", nil
	case 2:
		r.cancel()
		return "second", nil
	default:
		return "more", nil
	}
}

func (r *disconnectingRelay) Close() error {
	r.closed = true
	return nil
}

func TestHandler_Chat_ClientDisconnectStopsRelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	relay := &disconnectingRelay{cancel: cancel}
	handler, _, _ := newChatHandler(relay, nil)

	req := httptest.NewRequest("POST", "/api/chat", strings.NewReader(`{"message":"hi","videoId":"abc123"}`)).
		WithContext(ctx)
	rec := httptest.NewRecorder()
	handler.Chat(rec, req)

	// One delivered frame, then the loop notices the disconnect: no further
	// reads, no done frame.
	events := decodeFrames(t, rec.Body.String())
	require.Len(t, events, 1)
	assert.Equal(t, Event{Content: "first"}, events[0])
	assert.Equal(t, 2, relay.calls)
	assert.True(t, relay.closed)
}

func TestHandler_Chat_StreamFailureOmitsDone(t *testing.T) {
	relay := &sliceRelay{deltas: []string{"partial"}, err: errors.New("connection reset")}
	handler, _, _ := newChatHandler(relay, nil)

	req := httptest.NewRequest("POST", "/api/chat", strings.NewReader(`{"message":"hi","videoId":"abc123"}`))
	rec := httptest.NewRecorder()
	handler.Chat(rec, req)

	events := decodeFrames(t, rec.Body.String())
	require.Len(t, events, 1)
	assert.Equal(t, Event{Content: "partial"}, events[0])
	assert.True(t, relay.closed)
}
