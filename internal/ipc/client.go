package ipc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tasktray/internal/core/coordinator"
	"tasktray/internal/core/model"
)

const requestTimeout = 5 * time.Second

// Client talks to a running instance. It satisfies the same surface as the
// in-process coordinator, so windows and the terminal watcher can use either.
type Client struct {
	baseURL string
	http    *http.Client
	stream  *http.Client
	log     zerolog.Logger
}

// NewClient returns a client for the control API at address (host:port).
func NewClient(address string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: "http://" + address,
		http:    &http.Client{Timeout: requestTimeout},
		stream:  &http.Client{},
		log:     log.With().Str("component", "ipc-client").Logger(),
	}
}

// Ping reports whether an instance answers at the address.
func (client *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, client.baseURL+healthPath, nil)
	if err != nil {
		return err
	}
	resp, err := client.http.Do(req)
	if err != nil {
		return fmt.Errorf("ping %s: %w", client.baseURL, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ping %s: status %d", client.baseURL, resp.StatusCode)
	}
	return nil
}

// Focus asks the running instance to bring its window forward.
func (client *Client) Focus(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, client.baseURL+focusPath, nil)
	if err != nil {
		return err
	}
	resp, err := client.http.Do(req)
	if err != nil {
		return fmt.Errorf("focus: %w", err)
	}
	resp.Body.Close()
	return nil
}

// Send posts a control message. A rejected message returns the reply
// together with a *RemoteError.
func (client *Client) Send(ctx context.Context, message Message) (Reply, error) {
	body, err := json.Marshal(message)
	if err != nil {
		return Reply{}, fmt.Errorf("encode message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, client.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return Reply{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())

	resp, err := client.http.Do(req)
	if err != nil {
		return Reply{}, fmt.Errorf("send %s: %w", message.Type, err)
	}
	defer resp.Body.Close()

	var reply Reply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return Reply{}, fmt.Errorf("decode %s reply (status %d): %w", message.Type, resp.StatusCode, err)
	}
	if reply.Code != "" {
		return reply, &RemoteError{Code: reply.Code, Message: reply.Error}
	}
	if resp.StatusCode != http.StatusOK {
		return reply, fmt.Errorf("send %s: status %d", message.Type, resp.StatusCode)
	}
	return reply, nil
}

func (client *Client) sendTask(ctx context.Context, messageType MessageType, taskID string) (model.Snapshot, error) {
	reply, err := client.Send(ctx, Message{Type: messageType, TaskID: taskID})
	return reply.Snapshot, err
}

func (client *Client) StartTask(ctx context.Context, taskID string) (model.Snapshot, error) {
	return client.sendTask(ctx, MessageStartTimer, taskID)
}

func (client *Client) PauseTask(ctx context.Context, taskID string) (model.Snapshot, error) {
	return client.sendTask(ctx, MessagePauseTimer, taskID)
}

func (client *Client) StopTask(ctx context.Context, taskID string) (model.Snapshot, error) {
	return client.sendTask(ctx, MessageStopTimer, taskID)
}

func (client *Client) CompleteTask(ctx context.Context, taskID string) (model.Snapshot, error) {
	return client.sendTask(ctx, MessageCompleteTask, taskID)
}

func (client *Client) ResetTask(ctx context.Context, taskID string) (model.Snapshot, error) {
	return client.sendTask(ctx, MessageResetTimer, taskID)
}

func (client *Client) SetCurrentTask(ctx context.Context, taskID string) (model.Snapshot, error) {
	return client.sendTask(ctx, MessageSetCurrentTask, taskID)
}

func (client *Client) CurrentSnapshot(ctx context.Context) (model.Snapshot, error) {
	_, snapshot, err := client.CurrentTask(ctx)
	return snapshot, err
}

func (client *Client) CurrentTask(ctx context.Context) (*model.Task, model.Snapshot, error) {
	reply, err := client.Send(ctx, Message{Type: MessageGetCurrentTask})
	return reply.Task, reply.Snapshot, err
}

func (client *Client) UpdateUncompletedTasks(ctx context.Context, count int) (model.Snapshot, error) {
	reply, err := client.Send(ctx, Message{Type: MessageUpdateUncompletedTasks, Count: &count})
	return reply.Snapshot, err
}

// Subscribe opens the event stream. It returns once the server has
// registered the subscription; if the stream cannot be opened the returned
// channel is already closed.
func (client *Client) Subscribe(buffer int) (<-chan coordinator.Event, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan coordinator.Event, buffer)
	ctx, cancel := context.WithCancel(context.Background())

	resp, err := client.openStream(ctx)
	if err != nil {
		cancel()
		client.log.Warn().Err(err).Msg("open event stream")
		close(ch)
		return ch, func() {}
	}

	go func() {
		defer close(ch)
		defer resp.Body.Close()
		err := readEvents(resp.Body, func(event coordinator.Event) bool {
			select {
			case ch <- event:
				return true
			case <-ctx.Done():
				return false
			}
		})
		if err != nil && ctx.Err() == nil {
			client.log.Warn().Err(err).Msg("event stream ended")
		}
	}()

	var once sync.Once
	return ch, func() { once.Do(cancel) }
}

func (client *Client) openStream(ctx context.Context) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, client.baseURL+eventsPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set(requestIDHeader, uuid.NewString())

	resp, err := client.stream.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("connect: status %d", resp.StatusCode)
	}
	return resp, nil
}

// readEvents parses a server-sent event stream and hands each decoded
// event to deliver until deliver returns false or the stream ends.
func readEvents(r io.Reader, deliver func(coordinator.Event) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var name string
	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if data.Len() > 0 {
				var event coordinator.Event
				if err := json.Unmarshal([]byte(data.String()), &event); err != nil {
					return fmt.Errorf("decode %s event: %w", name, err)
				}
				if event.Type == "" {
					event.Type = coordinator.EventType(name)
				}
				if !deliver(event) {
					return nil
				}
			}
			name = ""
			data.Reset()
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	err := scanner.Err()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
