package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"artivox/internal/domain"
	"artivox/internal/metrics"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// voiceMaxAudioBytes caps the audio buffered between flushes.
	voiceMaxAudioBytes = 16 << 20
	// voiceAudioChunk is the binary frame size for synthesized replies.
	voiceAudioChunk = 32 * 1024
)

// VoiceConfig configures the voice WebSocket channel.
type VoiceConfig struct {
	Host string // bind address (default 127.0.0.1; voice has no auth)
	Port int
	Path string // WebSocket endpoint path (default: /session)

	Transcriber domain.Transcriber
	Synthesizer domain.Synthesizer
	STTOpts     domain.TranscribeOptions
	TTSOpts     domain.SynthesizeOptions

	// Greeting is spoken right after the WebSocket handshake.
	Greeting string
	// MetricsHandler, when set, is mounted at /metrics on the same mux.
	MetricsHandler http.HandlerFunc

	Logger *slog.Logger
}

// Voice implements domain.Channel as a WebSocket voice session server.
// Clients stream recorded audio as binary frames; a {"type":"flush"} text
// frame sends the buffered audio through the transcriber and into the agent
// loop. Replies come back as a {"type":"reply"} text frame followed by
// synthesized audio frames and {"type":"done"}.
type Voice struct {
	host     string
	port     int
	path     string
	stt      domain.Transcriber
	tts      domain.Synthesizer
	sttOpts  domain.TranscribeOptions
	ttsOpts  domain.SynthesizeOptions
	greeting string
	metricsH http.HandlerFunc

	bus    domain.MessageBus
	logger *slog.Logger
	server *http.Server

	mu       sync.RWMutex
	sessions map[string]*voiceSession
}

// voiceSession tracks one connected voice client.
type voiceSession struct {
	id   string
	conn *websocket.Conn
	ctx  context.Context

	writeMu sync.Mutex

	audioMu  sync.Mutex
	audio    bytes.Buffer
	overflow bool
}

// voiceFrame is the JSON text-frame protocol. Client → server: "flush"
// (transcribe buffered audio), "text" (skip STT, send text directly).
// Server → client: "transcript", "reply", "done", "error".
type voiceFrame struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

var voiceUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // bind-local by default; no origin policy
	},
}

func NewVoice(cfg VoiceConfig) *Voice {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8090
	}
	if cfg.Path == "" {
		cfg.Path = "/session"
	}
	return &Voice{
		host:     cfg.Host,
		port:     cfg.Port,
		path:     cfg.Path,
		stt:      cfg.Transcriber,
		tts:      cfg.Synthesizer,
		sttOpts:  cfg.STTOpts,
		ttsOpts:  cfg.TTSOpts,
		greeting: cfg.Greeting,
		metricsH: cfg.MetricsHandler,
		logger:   cfg.Logger,
		sessions: make(map[string]*voiceSession),
	}
}

func (v *Voice) Name() string { return "voice" }

// Start begins the voice WebSocket server and blocks until ctx is cancelled.
func (v *Voice) Start(ctx context.Context, bus domain.MessageBus) error {
	v.bus = bus

	mux := http.NewServeMux()
	mux.HandleFunc(v.path, v.handleSession)
	if v.metricsH != nil {
		mux.HandleFunc("/metrics", v.metricsH)
	}

	v.server = &http.Server{
		Addr:              net.JoinHostPort(v.host, strconv.Itoa(v.port)),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	bus.OnOutbound("voice", func(msg domain.OutboundMessage) {
		v.mu.RLock()
		sess, ok := v.sessions[msg.ChatID]
		v.mu.RUnlock()
		if !ok {
			v.logger.Debug("voice reply for disconnected session", "session", msg.ChatID)
			return
		}
		// Synthesis is a network round-trip; don't block the agent loop.
		go v.deliver(sess, msg.Content, msg.Final)
	})

	v.logger.Info("voice server starting", "addr", v.server.Addr, "path", v.path)

	errCh := make(chan error, 1)
	go func() {
		if err := v.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		v.closeAllSessions()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return v.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Stop is a no-op: the server shuts down when Start's context is cancelled.
func (v *Voice) Stop() error { return nil }

func (v *Voice) handleSession(w http.ResponseWriter, r *http.Request) {
	conn, err := voiceUpgrader.Upgrade(w, r, nil)
	if err != nil {
		v.logger.Error("voice upgrade failed", "err", err)
		return
	}
	conn.SetReadLimit(voiceMaxAudioBytes)

	sess := &voiceSession{
		id:   uuid.NewString(),
		conn: conn,
		ctx:  r.Context(),
	}

	v.mu.Lock()
	v.sessions[sess.id] = sess
	v.mu.Unlock()
	metrics.ActiveVoiceSessions.Inc()

	v.logger.Info("voice session connected", "session", sess.id, "remote", r.RemoteAddr)

	defer func() {
		v.mu.Lock()
		delete(v.sessions, sess.id)
		v.mu.Unlock()
		metrics.ActiveVoiceSessions.Dec()
		conn.Close()
		v.logger.Info("voice session closed", "session", sess.id)
	}()

	// Speak the greeting before any audio arrives.
	if v.greeting != "" {
		go v.deliver(sess, v.greeting, true)
	}

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				v.logger.Error("voice read error", "session", sess.id, "err", err)
			}
			return
		}

		switch mt {
		case websocket.BinaryMessage:
			sess.appendAudio(data)

		case websocket.TextMessage:
			var frame voiceFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				v.logger.Warn("invalid voice frame", "session", sess.id, "err", err)
				continue
			}
			v.handleFrame(sess, frame)
		}
	}
}

func (v *Voice) handleFrame(sess *voiceSession, frame voiceFrame) {
	switch frame.Type {
	case "flush":
		audio, overflowed := sess.takeAudio()
		if overflowed {
			v.sendFrame(sess, voiceFrame{Type: "error", Text: "That recording was too long for me to process. Please try a shorter one."})
			return
		}
		if len(audio) == 0 {
			v.sendFrame(sess, voiceFrame{Type: "error", Text: "I didn't receive any audio. Please record something and try again."})
			return
		}
		if v.stt == nil {
			v.sendFrame(sess, voiceFrame{Type: "error", Text: "Speech recognition is not configured on this server."})
			return
		}

		tr, err := v.stt.Transcribe(sess.ctx, bytes.NewReader(audio), v.sttOpts)
		if err != nil {
			v.logger.Error("transcription failed", "session", sess.id, "err", err)
			v.sendFrame(sess, voiceFrame{Type: "error", Text: "Sorry, I couldn't understand that audio. Please try again."})
			return
		}
		if tr.Text == "" {
			v.sendFrame(sess, voiceFrame{Type: "error", Text: "I couldn't make out any speech in that recording."})
			return
		}

		v.sendFrame(sess, voiceFrame{Type: "transcript", Text: tr.Text})
		v.publish(sess, tr.Text)

	case "text":
		// Typed input skips the transcriber.
		if frame.Text != "" {
			v.publish(sess, frame.Text)
		}

	default:
		v.logger.Debug("unknown voice frame type", "session", sess.id, "type", frame.Type)
	}
}

func (v *Voice) publish(sess *voiceSession, content string) {
	v.bus.Publish(domain.InboundMessage{
		Channel:   "voice",
		ChatID:    sess.id,
		SenderID:  sess.id,
		Content:   content,
		Timestamp: time.Now(),
	})
}

// deliver sends a reply to one session: text frame, synthesized audio for
// final replies, then a done frame.
func (v *Voice) deliver(sess *voiceSession, text string, final bool) {
	v.sendFrame(sess, voiceFrame{Type: "reply", Text: text})

	if final && v.tts != nil {
		if err := v.streamAudio(sess, text); err != nil {
			// The text reply already went out; a synthesis failure only
			// costs the spoken version.
			v.logger.Warn("speech synthesis failed", "session", sess.id, "err", err)
		}
	}

	v.sendFrame(sess, voiceFrame{Type: "done"})
}

func (v *Voice) streamAudio(sess *voiceSession, text string) error {
	stream, err := v.tts.Synthesize(sess.ctx, text, v.ttsOpts)
	if err != nil {
		return err
	}
	defer stream.Close()

	buf := make([]byte, voiceAudioChunk)
	for {
		n, err := stream.Read(buf)
		if n > 0 {
			if werr := sess.writeBinary(buf[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (v *Voice) sendFrame(sess *voiceSession, frame voiceFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	sess.writeMu.Lock()
	err = sess.conn.WriteMessage(websocket.TextMessage, data)
	sess.writeMu.Unlock()
	if err != nil {
		v.logger.Debug("voice write failed", "session", sess.id, "err", err)
	}
}

func (s *voiceSession) writeBinary(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (s *voiceSession) appendAudio(data []byte) {
	s.audioMu.Lock()
	defer s.audioMu.Unlock()
	if s.audio.Len()+len(data) > voiceMaxAudioBytes {
		s.overflow = true
		return
	}
	s.audio.Write(data)
}

// takeAudio returns the buffered audio and resets the buffer.
func (s *voiceSession) takeAudio() (data []byte, overflowed bool) {
	s.audioMu.Lock()
	defer s.audioMu.Unlock()
	overflowed = s.overflow
	s.overflow = false
	data = append([]byte(nil), s.audio.Bytes()...)
	s.audio.Reset()
	return data, overflowed
}

func (v *Voice) closeAllSessions() {
	v.mu.Lock()
	defer v.mu.Unlock()
	for id, sess := range v.sessions {
		sess.conn.Close()
		delete(v.sessions, id)
	}
}
