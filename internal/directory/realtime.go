package directory

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	methodSetHolder     = "directory.setHolder"
	defaultCallDeadline = 10 * time.Second
)

// RealtimeDirectory talks JSON-RPC to a directory gateway over a single
// websocket connection. A broken connection is dropped and re-dialled on
// the next call.
type RealtimeDirectory struct {
	URL    string
	Conn   *websocket.Conn
	logger *zap.Logger

	mu     sync.Mutex
	nextID int64
}

// NewRealtime validates the gateway URL. The connection is dialled by the
// first call, so an unreachable gateway only fails directory pushes.
func NewRealtime(rawURL string, logger *zap.Logger) (*RealtimeDirectory, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse directory gateway url: %w", err)
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return nil, fmt.Errorf("directory gateway url %q: scheme must be ws or wss", rawURL)
	}
	return &RealtimeDirectory{
		URL:    rawURL,
		logger: logger,
	}, nil
}

func (rd *RealtimeDirectory) Connect(ctx context.Context) error {
	rd.logger.Info("connecting to directory gateway", zap.String("url", rd.URL))
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, rd.URL, nil)
	if err != nil {
		return fmt.Errorf("dial directory gateway: %w", err)
	}
	rd.Conn = conn
	return nil
}

func (rd *RealtimeDirectory) SetHolder(ctx context.Context, hero, member string) error {
	members := []any{}
	if member != "" {
		members = append(members, member)
	}
	_, err := rd.call(ctx, methodSetHolder, map[string]any{
		"hero":    hero,
		"members": members,
	})
	return err
}

func (rd *RealtimeDirectory) Close() error {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	if rd.Conn == nil {
		return nil
	}
	err := rd.Conn.Close()
	rd.Conn = nil
	return err
}

func (rd *RealtimeDirectory) call(ctx context.Context, method string, params map[string]any) (*structpb.Value, error) {
	rd.mu.Lock()
	defer rd.mu.Unlock()

	if rd.Conn == nil {
		rd.logger.Info("reconnecting to directory gateway")
		if err := rd.Connect(ctx); err != nil {
			return nil, err
		}
	}

	rd.nextID++
	id := rd.nextID
	request, err := structpb.NewStruct(map[string]any{
		"jsonrpc": "2.0",
		"id":      float64(id),
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", method, err)
	}
	payload, err := protojson.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", method, err)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultCallDeadline)
	}
	_ = rd.Conn.SetWriteDeadline(deadline)
	_ = rd.Conn.SetReadDeadline(deadline)

	if err := rd.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		rd.drop(err)
		return nil, fmt.Errorf("send %s: %w", method, err)
	}

	for {
		_, message, err := rd.Conn.ReadMessage()
		if err != nil {
			rd.drop(err)
			return nil, fmt.Errorf("read %s response: %w", method, err)
		}
		var response structpb.Struct
		if err := protojson.Unmarshal(message, &response); err != nil {
			rd.logger.Warn("discarding unparsable gateway message", zap.Error(err))
			continue
		}
		fields := response.GetFields()
		if int64(fields["id"].GetNumberValue()) != id {
			// notifications and stale responses
			continue
		}
		if rpcErr, ok := fields["error"]; ok && rpcErr.GetKind() != nil {
			if _, isNull := rpcErr.GetKind().(*structpb.Value_NullValue); !isNull {
				return nil, rpcError(method, rpcErr)
			}
		}
		return fields["result"], nil
	}
}

func (rd *RealtimeDirectory) drop(cause error) {
	rd.logger.Warn("dropping directory gateway connection", zap.Error(cause))
	_ = rd.Conn.Close()
	rd.Conn = nil
}

func rpcError(method string, value *structpb.Value) error {
	if obj := value.GetStructValue(); obj != nil {
		if msg := obj.GetFields()["message"].GetStringValue(); msg != "" {
			return fmt.Errorf("%s: %s", method, msg)
		}
	}
	return fmt.Errorf("%s: gateway returned an error", method)
}
