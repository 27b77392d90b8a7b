package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"

	"github.com/hitoshi/showroom/internal/slideshow"
	"github.com/hitoshi/showroom/internal/view"
)

// WebSocket接続の定数
const (
	// writeWait は1メッセージの書き込みを待つ最大時間。
	writeWait = 10 * time.Second
	// pongWait はpongを待つ最大時間。これを超えると切断したとみなす。
	pongWait = 60 * time.Second
	// pingPeriod はpingの送信間隔。pongWaitより短くする。
	pingPeriod = pongWait * 9 / 10
	// maxMessageSize はクライアントから受け付ける1メッセージの最大サイズ（バイト）。
	maxMessageSize = 4096
	// sendBufferSize は送信キューの長さ。溢れた通知は捨てる。
	sendBufferSize = 16
)

// クライアントからの操作
const (
	slideOpNext = "next"
	slideOpPrev = "prev"
	slideOpGoTo = "goto"
)

// SlideshowConfig はスライドショーのWebSocketハンドラーの設定。
type SlideshowConfig struct {
	Clock          clock.Clock   // 自動送りのタイマー（nilの場合は実時間）
	Interval       time.Duration // 自動送りの間隔（0の場合は slideshow.DefaultInterval）
	AllowedOrigins []string      // 接続を許可するOrigin（空の場合は同一オリジンのみ）
}

// SlideshowHandler は車両詳細画面の画像スライドショーをWebSocketで配信する。
// 接続ごとにスライドショーを1つ持ち、インデックスが変わるたびに現在の画像を送信する。
type SlideshowHandler struct {
	catalog  CatalogService
	config   SlideshowConfig
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewSlideshowHandler はSlideshowHandlerを生成する。
func NewSlideshowHandler(catalog CatalogService, config SlideshowConfig, logger *slog.Logger) *SlideshowHandler {
	if config.Clock == nil {
		config.Clock = clock.New()
	}
	if config.Interval <= 0 {
		config.Interval = slideshow.DefaultInterval
	}

	h := &SlideshowHandler{
		catalog: catalog,
		config:  config,
		logger:  logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if len(config.AllowedOrigins) > 0 {
		h.upgrader.CheckOrigin = h.checkOrigin
	}
	return h
}

func (h *SlideshowHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || slices.Contains(h.config.AllowedOrigins, origin)
}

// slideMessage はサーバーからクライアントへ送るメッセージ。
//   - state: 接続直後の状態
//   - slide: インデックスの変更
//   - error: 操作の失敗
type slideMessage struct {
	Type    string          `json:"type"`
	Index   int             `json:"index"`
	Count   int             `json:"count"`
	Image   *view.ImageView `json:"image,omitempty"`
	Message string          `json:"message,omitempty"`
}

// slideCommand はクライアントからの操作。
type slideCommand struct {
	Op    string `json:"op"`
	Index *int   `json:"index,omitempty"`
}

// ServeHTTP は車両を取得してからWebSocketにアップグレードし、切断までスライドショーを動かす。
// 車両の取得に失敗した場合はアップグレードせず統一エラーフォーマットで応答する。
// GET /ws/cars/{id}/slideshow
func (h *SlideshowHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	page, err := h.catalog.CarDetail(r.Context(), id)
	if err != nil {
		handleError(w, r, h.logger, err, "")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgradeがエラーレスポンスを書き込み済み
		h.logger.Warn("websocket upgrade failed", slog.Int64("car_id", id), slog.String("error", err.Error()))
		return
	}

	images := page.Images
	send := make(chan slideMessage, sendBufferSize)
	push := func(msg slideMessage) {
		select {
		case send <- msg:
		default:
			h.logger.Warn("slideshow send buffer full, dropping message", slog.Int64("car_id", id))
		}
	}
	current := func(typ string, index int) slideMessage {
		msg := slideMessage{Type: typ, Index: index, Count: len(images)}
		if index >= 0 && index < len(images) {
			img := images[index]
			msg.Image = &img
		}
		return msg
	}

	// 詳細画面と同じく代表画像から始める
	show := slideshow.NewAt(h.config.Clock, len(images), page.SelectedIndex(), h.config.Interval, func(index int) {
		push(current("slide", index))
	})
	push(current("state", show.Index()))

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writePump(conn, send, show.Done())
	}()

	h.readPump(conn, show, push, id)

	show.Stop()
	<-writerDone
	conn.Close()
}

// readPump はクライアントの操作を読み取りスライドショーに反映する。
// 接続が閉じるかエラーになると戻る。
func (h *SlideshowHandler) readPump(conn *websocket.Conn, show *slideshow.Slideshow, push func(slideMessage), carID int64) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("slideshow connection closed unexpectedly",
					slog.Int64("car_id", carID),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		var cmd slideCommand
		if err := json.Unmarshal(raw, &cmd); err != nil {
			push(slideMessage{Type: "error", Index: show.Index(), Count: show.Len(), Message: "invalid message"})
			continue
		}

		switch cmd.Op {
		case slideOpNext:
			show.Next()
		case slideOpPrev:
			show.Prev()
		case slideOpGoTo:
			if cmd.Index == nil {
				push(slideMessage{Type: "error", Index: show.Index(), Count: show.Len(), Message: "index is required"})
				continue
			}
			if err := show.GoTo(*cmd.Index); err != nil {
				push(slideMessage{Type: "error", Index: show.Index(), Count: show.Len(), Message: err.Error()})
			}
		default:
			push(slideMessage{Type: "error", Index: show.Index(), Count: show.Len(), Message: "unknown op: " + cmd.Op})
		}
	}
}

// writePump は送信キューのメッセージとpingを書き込む。
// スライドショーが止まるか書き込みに失敗すると戻る。
func (h *SlideshowHandler) writePump(conn *websocket.Conn, send <-chan slideMessage, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				// 読み取り側を終わらせる
				conn.Close()
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		case <-done:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
