// Package frontend serves the diagnostic web API: node beliefs, diamond
// structures and classifications, dedup-store statistics, the capacity and
// critical-path peers and the Monte Carlo cross-check, plus a websocket
// progress feed. It is a consumer of the core, never a dependency of it.
package frontend

import (
	"net/http"
	"reflect"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/akyoto/cache"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"

	"github.com/beliefdag/beliefdag/modules/analyze"
	"github.com/beliefdag/beliefdag/modules/basedata"
	"github.com/beliefdag/beliefdag/modules/belief"
	"github.com/beliefdag/beliefdag/modules/flow"
	"github.com/beliefdag/beliefdag/modules/graph"
	"github.com/beliefdag/beliefdag/modules/loaders"
	"github.com/beliefdag/beliefdag/modules/montecarlo"
	"github.com/beliefdag/beliefdag/modules/settings"
	"github.com/beliefdag/beliefdag/modules/ui"
)

var qjson = jsoniter.ConfigCompatibleWithStandardLibrary

type WebService struct {
	engine *gin.Engine
	Router *gin.RouterGroup
	API    *gin.RouterGroup
	srv    http.Server

	quit chan bool

	mu      sync.RWMutex
	session *analyze.Session

	// Rendered classification payloads are cached briefly; they are pure
	// functions of the immutable session but expensive to assemble.
	responses *cache.Cache
}

func NewWebservice() *WebService {
	gin.SetMode(gin.ReleaseMode) // Has to happen first
	ws := &WebService{
		engine:    gin.New(),
		quit:      make(chan bool),
		responses: cache.New(30 * time.Second),
	}

	ws.engine.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		logger := ui.Info()
		if c.Writer.Status() >= 500 {
			logger = ui.Error()
		} else if c.Writer.Status() >= 400 {
			logger = ui.Warn()
		}
		logger.Msgf("%s %s (%v) %v, %v bytes", c.Request.Method, path, c.Writer.Status(), time.Since(start), c.Writer.Size())
	})
	ws.engine.Use(gin.Recovery())

	ws.Router = ws.engine.Group("")
	ws.API = ws.Router.Group("/api")
	pprof.Register(ws.engine)

	ws.addAPIEndpoints()
	return ws
}

// SetSession swaps the network under analysis. Sessions are immutable;
// handlers grab a snapshot under the read lock and work from that.
func (ws *WebService) SetSession(session *analyze.Session) {
	ws.mu.Lock()
	ws.session = session
	ws.mu.Unlock()
}

func (ws *WebService) currentSession() *analyze.Session {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.session
}

func (ws *WebService) QuitChan() <-chan bool {
	return ws.quit
}

func (ws *WebService) Quit() {
	close(ws.quit)
}

func (ws *WebService) Start(bind string) error {
	ws.srv = http.Server{
		Addr:    bind,
		Handler: ws.engine,
	}

	go func() {
		if err := ws.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			ui.Fatal().Msgf("Problem launching webservice listener: %s", err)
		}
	}()

	ui.Info().Msgf("Listening on %v", bind)
	return nil
}

func (ws *WebService) addAPIEndpoints() {
	api := ws.API

	api.GET("/status", func(c *gin.Context) {
		session := ws.currentSession()
		status := gin.H{"status": "no network loaded", "meta": basedata.GetCommonData()}
		if session != nil {
			status = gin.H{
				"status": "ready",
				"meta":   basedata.GetCommonData(),
				"nodes":  len(session.Idx.Nodes()),
				"edges":  len(session.Net.Edges),
				"levels": len(session.Sched.Levels),
				"joins":  len(session.Idx.JoinNodes),
			}
		}
		c.JSON(http.StatusOK, status)
	})

	api.POST("/network", func(c *gin.Context) {
		var doc struct {
			Path string `json:"path"`
		}
		if err := c.BindJSON(&doc); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		net, err := loaders.LoadJSON(doc.Path)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		session, err := analyze.NewSession(net)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		ws.SetSession(session)
		settings.Set("lastnetwork", doc.Path)
		settings.Save()
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api.GET("/beliefs", func(c *gin.Context) {
		session := ws.currentSession()
		if session == nil {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "no network loaded"})
			return
		}

		var payload any
		var err error
		switch c.DefaultQuery("domain", "prob") {
		case "prob":
			payload, err = propagatePayload(session, belief.ProbAlgebra{})
		case "interval":
			payload, err = propagatePayload(session, belief.IntervalAlgebra{})
		case "pbox":
			payload, err = propagatePayload(session, belief.PBoxAlgebra{})
		default:
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown domain"})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		writeJSON(c, payload)
	})

	api.GET("/diamonds", func(c *gin.Context) {
		session := ws.currentSession()
		if session == nil {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "no network loaded"})
			return
		}
		writeJSON(c, session.Structures)
	})

	api.GET("/diamonds/classifications", func(c *gin.Context) {
		session := ws.currentSession()
		if session == nil {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "no network loaded"})
			return
		}
		if cached, found := ws.responses.Get("classifications"); found {
			c.Data(http.StatusOK, "application/json", cached.([]byte))
			return
		}
		raw, err := qjson.Marshal(session.Classifications())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		ws.responses.Set("classifications", raw, 30*time.Second)
		c.Data(http.StatusOK, "application/json", raw)
	})

	api.GET("/store/stats", func(c *gin.Context) {
		session := ws.currentSession()
		if session == nil {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "no network loaded"})
			return
		}
		writeJSON(c, session.Store.Stats())
	})

	api.GET("/capacity", func(c *gin.Context) {
		session := ws.currentSession()
		if session == nil {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "no network loaded"})
			return
		}
		writeJSON(c, flow.Capacity(session.Idx, session.Sched, session.Net.Priors, session.Net.EdgeProbs))
	})

	api.GET("/criticalpath", func(c *gin.Context) {
		session := ws.currentSession()
		if session == nil {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "no network loaded"})
			return
		}
		writeJSON(c, flow.CriticalPath(session.Idx, session.Sched, session.Net.Priors, session.Net.EdgeProbs))
	})

	api.POST("/validate", func(c *gin.Context) {
		session := ws.currentSession()
		if session == nil {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "no network loaded"})
			return
		}
		samples, _ := strconv.Atoi(c.DefaultQuery("samples", "100000"))
		seed, _ := strconv.ParseInt(c.DefaultQuery("seed", "1"), 10, 64)

		exact, err := analyze.Propagate(session, belief.ProbAlgebra{})
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		estimate := montecarlo.Estimate(session.Net, session.Idx, samples, seed)

		type deviation struct {
			Node      graph.NodeID `json:"node"`
			Exact     float64      `json:"exact"`
			Estimated float64      `json:"estimated"`
			Delta     float64      `json:"delta"`
		}
		devs := make([]deviation, 0, len(exact.Beliefs))
		for n, b := range exact.Beliefs {
			d := b - estimate[n]
			if d < 0 {
				d = -d
			}
			devs = append(devs, deviation{Node: n, Exact: b, Estimated: estimate[n], Delta: d})
		}
		slices.SortFunc(devs, func(a, b deviation) int {
			switch {
			case a.Delta > b.Delta:
				return -1
			case a.Delta < b.Delta:
				return 1
			}
			return int(a.Node) - int(b.Node)
		})
		writeJSON(c, gin.H{"samples": samples, "deviations": devs})
	})

	// WebSocket progress status
	api.GET("/ws-progress", func(c *gin.Context) {
		upgrader := websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var lastpbr []ui.ProgressReport
		var skipcounter int

		for {
			pbr := ui.GetProgressReport()
			slices.SortStableFunc(pbr, func(i, j ui.ProgressReport) int {
				return int(i.StartTime.Sub(j.StartTime))
			})

			if reflect.DeepEqual(lastpbr, pbr) {
				time.Sleep(250 * time.Millisecond)
				skipcounter++
				if skipcounter < 120 {
					continue
				}
			}

			skipcounter = 0
			conn.SetWriteDeadline(time.Now().Add(time.Second * 15))
			err = conn.WriteJSON(gin.H{"progressbars": pbr})
			if err != nil {
				return
			}
			lastpbr = pbr
		}
	})

	// Polled progress status
	api.GET("/progress", func(c *gin.Context) {
		writeJSON(c, ui.GetProgressReport())
	})

	api.GET("/quit", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "quitting"})
		ws.Quit()
	})
}

func propagatePayload[T any](session *analyze.Session, alg belief.Algebra[T]) (any, error) {
	res, err := analyze.Propagate(session, alg)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func writeJSON(c *gin.Context, payload any) {
	raw, err := qjson.Marshal(payload)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json", raw)
}
