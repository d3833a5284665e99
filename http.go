package showandtell

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/connctd/showandtell/v2/slide"
)

var (
	writeWait = 10 * time.Second
	// hydration passes finishing within this window trigger one reload
	reloadDelay = 250 * time.Millisecond
)

type PresentationServer struct {
	deck       *Deck
	ctx        context.Context
	httpServer *http.Server
	wsUpgrader websocket.Upgrader
	log        logrus.FieldLogger

	connLock        sync.Mutex
	livereloadConns map[*websocket.Conn]context.CancelFunc

	reloadLock  sync.Mutex
	reloadTimer *time.Timer
	// one writer per connection at a time
	writeLock sync.Mutex
}

// NewPresentationServer loads the deck and routes the presentation. A nil
// gatherer disables /metrics.
func NewPresentationServer(ctx context.Context, deck *Deck, addr string, gatherer prometheus.Gatherer, log logrus.FieldLogger) (*PresentationServer, error) {
	p := &PresentationServer{
		ctx:             ctx,
		deck:            deck,
		httpServer:      &http.Server{Addr: addr},
		wsUpgrader:      websocket.Upgrader{},
		log:             log.WithField("component", "server"),
		livereloadConns: map[*websocket.Conn]context.CancelFunc{},
	}

	if err := deck.Load(); err != nil {
		return nil, err
	}
	deck.OnHydrated(func(view string, r slide.Report) {
		if r.Rendered+r.Failed > 0 {
			p.scheduleReload()
		}
	})

	router := mux.NewRouter()
	router.HandleFunc("/", p.serveIndex).Methods(http.MethodGet)
	router.HandleFunc("/slides/{id}", p.serveSlide).Methods(http.MethodGet)
	router.HandleFunc("/livereload", p.livereloadHandler)
	router.PathPrefix("/assets/").Handler(AssetHandler())
	if gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	p.httpServer.Handler = router

	return p, nil
}

func (p *PresentationServer) Handler() http.Handler {
	return p.httpServer.Handler
}

func (p *PresentationServer) serveIndex(w http.ResponseWriter, r *http.Request) {
	index, err := p.deck.RenderIndex()
	if err != nil {
		p.log.WithError(err).Error("rendering index failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(index)
}

func (p *PresentationServer) serveSlide(w http.ResponseWriter, r *http.Request) {
	section, err := p.deck.RenderSlide(mux.Vars(r)["id"])
	if errors.Cause(err) == ErrSlideNotFound {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		p.log.WithError(err).Error("rendering slide failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(section)
}

func (p *PresentationServer) livereloadHandler(w http.ResponseWriter, r *http.Request) {
	ws, err := p.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	ctx, cancel := context.WithCancel(p.ctx)
	p.connLock.Lock()
	p.livereloadConns[ws] = cancel
	p.connLock.Unlock()

	go p.ping(ctx, ws)
	go p.readUntilClosed(ws)
}

// readUntilClosed processes control frames and drops the connection once the
// browser goes away.
func (p *PresentationServer) readUntilClosed(ws *websocket.Conn) {
	for {
		if _, _, err := ws.NextReader(); err != nil {
			p.dropConn(ws)
			return
		}
	}
}

func (p *PresentationServer) ping(ctx context.Context, ws *websocket.Conn) {
	ticker := time.NewTicker(time.Second * 30)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeWait)); err != nil {
				p.log.WithError(err).Debug("livereload ping failed")
				p.dropConn(ws)
				return
			}
		}
	}
}

func (p *PresentationServer) dropConn(ws *websocket.Conn) {
	p.connLock.Lock()
	cancel, exists := p.livereloadConns[ws]
	delete(p.livereloadConns, ws)
	p.connLock.Unlock()
	if exists {
		cancel()
		ws.Close()
	}
}

// broadcastReload tells every connected browser to reload.
func (p *PresentationServer) broadcastReload() {
	p.writeLock.Lock()
	defer p.writeLock.Unlock()

	p.connLock.Lock()
	conns := make([]*websocket.Conn, 0, len(p.livereloadConns))
	for ws := range p.livereloadConns {
		conns = append(conns, ws)
	}
	p.connLock.Unlock()

	for _, ws := range conns {
		ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteMessage(websocket.TextMessage, []byte(`Reload`)); err != nil {
			p.dropConn(ws)
		}
	}
}

func (p *PresentationServer) scheduleReload() {
	p.reloadLock.Lock()
	defer p.reloadLock.Unlock()
	if p.reloadTimer != nil {
		p.reloadTimer.Stop()
	}
	p.reloadTimer = time.AfterFunc(reloadDelay, p.broadcastReload)
}

// Rerender reloads the deck and tells browsers to reload. A failed load keeps
// the previous slides.
func (p *PresentationServer) Rerender() error {
	if err := p.deck.Load(); err != nil {
		return err
	}
	go p.broadcastReload()
	return nil
}

func (p *PresentationServer) Close() error {
	p.reloadLock.Lock()
	if p.reloadTimer != nil {
		p.reloadTimer.Stop()
	}
	p.reloadLock.Unlock()

	p.connLock.Lock()
	for ws, cancel := range p.livereloadConns {
		cancel()
		ws.Close()
	}
	p.livereloadConns = map[*websocket.Conn]context.CancelFunc{}
	p.connLock.Unlock()

	ctx, cancel := context.WithTimeout(p.ctx, time.Second*15)
	defer cancel()
	return p.httpServer.Shutdown(ctx)
}

func (p *PresentationServer) Run() {
	go func() {
		if err := p.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			p.log.WithError(err).Error("http server stopped")
		}
	}()
}
