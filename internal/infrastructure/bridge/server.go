package bridge

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/chatvault/backend/internal/domain/events"
	"github.com/chatvault/backend/internal/infrastructure/config"
	"github.com/chatvault/backend/internal/infrastructure/log"
)

const (
	// heartbeatInterval 服务端 Ping 间隔
	heartbeatInterval = 30 * time.Second
	// heartbeatTimeout 超过该时长未收到任何消息则断开
	heartbeatTimeout = 90 * time.Second
)

// Server 拦截器桥接服务端
// 每个浏览器标签页的拦截脚本建立一条连接；连接建立后服务端立即
// 下发 ready 信号，拦截器随即冲刷其本地积压并转为实时投递
type Server struct {
	mu          sync.RWMutex
	connections map[string]*clientConn
	relay       *Relay
	cfg         *config.BridgeConfig
	eventBus    events.EventBus
	logger      *slog.Logger
	upgrader    websocket.Upgrader
}

// clientConn 单个拦截器连接
type clientConn struct {
	mu       sync.Mutex
	conn     *websocket.Conn
	clientID string
	lastSeq  uint64
	done     chan struct{}
}

// NewServer 创建桥接服务端
func NewServer(cfg *config.BridgeConfig, relay *Relay, eventBus events.EventBus) *Server {
	return &Server{
		connections: make(map[string]*clientConn),
		relay:       relay,
		cfg:         cfg,
		eventBus:    eventBus,
		logger:      log.NewModuleLogger("bridge", "server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				// 仅本机守护进程，扩展经 localhost 连接
				return true
			},
		},
	}
}

// HandleConnection 处理新的拦截器连接
func (s *Server) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade connection",
			"error", err,
		)
		return
	}

	client := &clientConn{
		conn:     conn,
		clientID: uuid.NewString(),
		done:     make(chan struct{}),
	}

	s.mu.Lock()
	s.connections[client.clientID] = client
	s.mu.Unlock()

	// 就绪信号：拦截器收到后冲刷其积压队列
	if err := s.sendReady(client); err != nil {
		s.logger.Warn("failed to send ready signal",
			"client_id", client.clientID,
			"error", err,
		)
		s.removeConnection(client)
		return
	}

	s.eventBus.Publish(&events.BridgeEvent{
		EventType: events.BridgeConnected,
		ClientID:  client.clientID,
		EventTime: time.Now(),
	})

	s.logger.Info("interceptor connected",
		"client_id", client.clientID,
	)

	go s.writePump(client)
	go s.readPump(client)
}

// sendReady 下发就绪信号
func (s *Server) sendReady(client *clientConn) error {
	ready := Envelope{Source: s.relay.Source(), Kind: KindReady}
	data, err := json.Marshal(ready)
	if err != nil {
		return err
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	return client.conn.WriteMessage(websocket.TextMessage, data)
}

// readPump 读取并投递信封
func (s *Server) readPump(client *clientConn) {
	defer s.removeConnection(client)

	client.conn.SetReadLimit(int64(s.cfg.MaxBodyBytes) + 64*1024)
	_ = client.conn.SetReadDeadline(time.Now().Add(heartbeatTimeout))
	client.conn.SetPongHandler(func(string) error {
		_ = client.conn.SetReadDeadline(time.Now().Add(heartbeatTimeout))
		return nil
	})

	for {
		select {
		case <-client.done:
			return
		default:
		}

		_, message, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("connection read error",
					"client_id", client.clientID,
					"error", err,
				)
			}
			return
		}
		_ = client.conn.SetReadDeadline(time.Now().Add(heartbeatTimeout))

		var env Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			s.logger.Warn("failed to parse envelope",
				"client_id", client.clientID,
				"error", err,
			)
			continue
		}

		s.acceptEnvelope(client, &env)
	}
}

// acceptEnvelope 校验并投递单个信封
func (s *Server) acceptEnvelope(client *clientConn, env *Envelope) {
	// 来源标记过滤无关流量
	if env.Source != s.relay.Source() {
		s.logger.Debug("dropping envelope with unknown source",
			"client_id", client.clientID,
			"source", env.Source,
		)
		return
	}

	// 序列号单调性检查：缺口说明投递通道丢了消息，记录但不拒收
	if env.Seq > 0 {
		if client.lastSeq > 0 && env.Seq != client.lastSeq+1 {
			s.logger.Warn("sequence gap detected",
				"client_id", client.clientID,
				"expected", client.lastSeq+1,
				"got", env.Seq,
			)
		}
		client.lastSeq = env.Seq
	}

	// 响应体截断保护
	if len(env.Body) > s.cfg.MaxBodyBytes {
		env.Body = env.Body[:s.cfg.MaxBodyBytes]
	}

	// 经中继投递，桥接信封保留拦截器分配的序列号
	s.relay.Publish(env)
}

// writePump 心跳保活
func (s *Server) writePump(client *clientConn) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-client.done:
			return
		case <-ticker.C:
			client.mu.Lock()
			err := client.conn.WriteMessage(websocket.PingMessage, nil)
			client.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// removeConnection 移除连接
func (s *Server) removeConnection(client *clientConn) {
	s.mu.Lock()
	existing, ok := s.connections[client.clientID]
	if ok && existing == client {
		delete(s.connections, client.clientID)
	}
	s.mu.Unlock()

	if !ok {
		return
	}

	close(client.done)
	_ = client.conn.Close()

	s.eventBus.Publish(&events.BridgeEvent{
		EventType: events.BridgeDisconnected,
		ClientID:  client.clientID,
		EventTime: time.Now(),
	})

	s.logger.Info("interceptor disconnected",
		"client_id", client.clientID,
	)
}

// ConnectedClients 返回当前连接数（监控用）
func (s *Server) ConnectedClients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.connections)
}

// Close 关闭所有连接
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, client := range s.connections {
		close(client.done)
		_ = client.conn.Close()
	}
	s.connections = make(map[string]*clientConn)
}
