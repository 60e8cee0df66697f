// Package gateway is the HTTP and WebSocket surface of the engineering
// station: commands in from the local UI and the GM console, snapshots out to
// every connected display.
package gateway

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/bridgesim/stationcore/internal/engineering"
	"github.com/bridgesim/stationcore/internal/roster"
	"github.com/bridgesim/stationcore/internal/ships"
)

// Gateway routes station traffic to the engineering engine.
type Gateway struct {
	router    *gin.Engine
	engine    *engineering.Engine
	crew      *roster.Roster
	ships     *ships.Registry
	log       zerolog.Logger
	jwtSecret string

	wsMu      sync.RWMutex
	wsClients map[uuid.UUID]*wsClient
}

type wsClient struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// Config holds gateway settings.
type Config struct {
	JWTSecret string
	Logger    zerolog.Logger
}

// New builds the gateway and its routes.
func New(cfg Config, engine *engineering.Engine, crew *roster.Roster, shipDB *ships.Registry) *Gateway {
	gin.SetMode(gin.ReleaseMode)
	g := &Gateway{
		router:    gin.New(),
		engine:    engine,
		crew:      crew,
		ships:     shipDB,
		log:       cfg.Logger,
		jwtSecret: cfg.JWTSecret,
		wsClients: make(map[uuid.UUID]*wsClient),
	}
	g.router.Use(gin.Recovery())
	g.setupRoutes()
	return g
}

func (g *Gateway) setupRoutes() {
	g.router.GET("/health", g.healthCheck)

	v1 := g.router.Group("/api/v1")
	{
		v1.POST("/commands", g.handleCommand)
		v1.GET("/snapshot", g.getSnapshot)
		v1.GET("/systems", g.listSystems)
		v1.GET("/systems/:name", g.getSystem)
		v1.GET("/systems/:name/report", g.getReport)
		v1.GET("/systems/:name/history", g.getHistory)
		v1.GET("/repairs", g.listRepairs)
		v1.GET("/alerts", g.listAlerts)
		v1.GET("/status", g.getStatus)

		v1.GET("/ships", g.listShips)
		v1.GET("/ships/:id", g.getShip)

		v1.POST("/join", g.joinCrew)
		v1.DELETE("/join/:sessionId", g.leaveCrew)
		v1.GET("/roster", g.getRoster)

		v1.GET("/ws", g.handleWebSocket)
	}
}

// Handler exposes the router for the HTTP server and for tests.
func (g *Gateway) Handler() http.Handler {
	return g.router
}

func (g *Gateway) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// handleCommand decodes one command envelope and executes it against the
// engine. Validation errors map to 400, resource constraints to 409.
func (g *Gateway) handleCommand(c *gin.Context) {
	var cmd engineering.Command
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid command envelope"})
		return
	}
	if cmd.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing command name"})
		return
	}
	if !g.gmAuth(c, cmd.Name) {
		return
	}

	if err := g.engine.Execute(cmd); err != nil {
		switch {
		case engineering.IsValidation(err):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case engineering.IsResourceConstraint(err):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "command failed"})
		}
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "command applied"})
}

func (g *Gateway) getSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, g.engine.Snapshot())
}

func (g *Gateway) listSystems(c *gin.Context) {
	c.JSON(http.StatusOK, g.engine.Snapshot().Systems)
}

func (g *Gateway) getSystem(c *gin.Context) {
	name := engineering.SystemName(c.Param("name"))
	status, ok := g.engine.System(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown system"})
		return
	}
	c.JSON(http.StatusOK, status)
}

func (g *Gateway) getReport(c *gin.Context) {
	name := engineering.SystemName(c.Param("name"))
	report, ok := g.engine.LastReport(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no report available"})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (g *Gateway) getHistory(c *gin.Context) {
	name := engineering.SystemName(c.Param("name"))
	c.JSON(http.StatusOK, gin.H{
		"samples": g.engine.History(name),
		"trend":   g.engine.HealthTrend(name),
	})
}

func (g *Gateway) listRepairs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": g.engine.RepairQueue()})
}

func (g *Gateway) listAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"alerts": g.engine.Alerts()})
}

func (g *Gateway) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, g.engine.Status())
}

func (g *Gateway) listShips(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ships": g.ships.List()})
}

func (g *Gateway) getShip(c *gin.Context) {
	ship, ok := g.ships.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown ship"})
		return
	}
	c.JSON(http.StatusOK, ship)
}

type joinRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	Station   string `json:"station" binding:"required"`
	Name      string `json:"name" binding:"required"`
}

func (g *Gateway) joinCrew(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid join request"})
		return
	}
	member := g.crew.Join(req.SessionID, req.Station, req.Name)
	c.JSON(http.StatusOK, member)
}

func (g *Gateway) leaveCrew(c *gin.Context) {
	g.crew.Leave(c.Param("sessionId"))
	c.Status(http.StatusNoContent)
}

func (g *Gateway) getRoster(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"members": g.crew.List()})
}

// WebSocket handling

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (g *Gateway) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := &wsClient{
		id:   uuid.New(),
		conn: conn,
		send: make(chan []byte, 16),
		done: make(chan struct{}),
	}

	g.wsMu.Lock()
	g.wsClients[client.id] = client
	g.wsMu.Unlock()

	// Fresh subscribers get the current state immediately.
	if data, err := json.Marshal(wsEvent{Type: "snapshot", Payload: g.engine.Snapshot()}); err == nil {
		client.send <- data
	}

	go g.wsReadPump(client)
	go g.wsWritePump(client)
}

func (g *Gateway) wsReadPump(client *wsClient) {
	defer func() {
		g.wsMu.Lock()
		delete(g.wsClients, client.id)
		g.wsMu.Unlock()
		close(client.done)
		client.conn.Close()
	}()

	for {
		// Inbound frames are only used for liveness; commands go over HTTP.
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (g *Gateway) wsWritePump(client *wsClient) {
	for {
		select {
		case message := <-client.send:
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-client.done:
			return
		}
	}
}

type wsEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// BroadcastSnapshot fans a snapshot out to every WebSocket subscriber. Slow
// consumers are skipped rather than allowed to stall the broadcast.
func (g *Gateway) BroadcastSnapshot(snap engineering.Snapshot) {
	g.broadcast(wsEvent{Type: "snapshot", Payload: snap})
}

// BroadcastRoster announces a crew change to every subscriber.
func (g *Gateway) BroadcastRoster(members []roster.Member) {
	g.broadcast(wsEvent{Type: "roster", Payload: members})
}

func (g *Gateway) broadcast(event wsEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		g.log.Error().Err(err).Msg("failed to marshal broadcast")
		return
	}

	g.wsMu.RLock()
	defer g.wsMu.RUnlock()
	for _, client := range g.wsClients {
		select {
		case client.send <- data:
		case <-client.done:
		default:
			g.log.Debug().Str("client", client.id.String()).Msg("dropping frame for slow subscriber")
		}
	}
}
