package server

import (
	"Global_SpeedTest_Go/internal/catalog"
	"Global_SpeedTest_Go/internal/config"
	"Global_SpeedTest_Go/internal/engine"
	"Global_SpeedTest_Go/internal/history"
	"Global_SpeedTest_Go/internal/locales"
	"Global_SpeedTest_Go/internal/logging"
	"Global_SpeedTest_Go/internal/output"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

//go:embed web
var embeddedFS embed.FS

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// RunnerFactory 根据本次运行的配置创建 Runner
type RunnerFactory func(cfg *config.Config, cat *catalog.Catalog, cb engine.ProgressCallback) (*engine.Runner, error)

// Server 提供 Web 界面、REST 接口和 websocket 测试进度
type Server struct {
	cfgPath   string
	resultDir string
	catalog   *catalog.Catalog
	locales   *locales.Bundle
	history   *history.Store // 可以为 nil
	newRunner RunnerFactory
	now       func() time.Time
}

// New 创建 Server。store 为 nil 时不保存历史。
func New(cfgPath, resultDir string, cat *catalog.Catalog, bundle *locales.Bundle, store *history.Store) *Server {
	return &Server{
		cfgPath:   cfgPath,
		resultDir: resultDir,
		catalog:   cat,
		locales:   bundle,
		history:   store,
		newRunner: engine.FromConfig,
		now:       time.Now,
	}
}

// Router 返回注册好所有路由的 gin.Engine
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	// 去掉 "web" 前缀
	staticFS, err := fs.Sub(embeddedFS, "web")
	if err != nil {
		panic(err)
	}
	router.StaticFS("/static", http.FS(staticFS))
	router.GET("/", func(c *gin.Context) {
		c.FileFromFS("/", http.FS(staticFS))
	})

	api := router.Group("/api")
	{
		api.GET("/config", s.getConfig)
		api.POST("/config", s.saveConfig)
		api.GET("/servers", s.listServers)
		api.GET("/history", s.listHistory)
	}
	router.GET("/ws/run", s.handleWebSocket)
	return router
}

// Start 启动 Web 服务器，ctx 结束时关闭
func Start(ctx context.Context, port int, s *Server, open bool) error {
	addr := fmt.Sprintf("0.0.0.0:%d", port)
	srv := &http.Server{Addr: addr, Handler: s.Router()}

	logging.Infof("服务器正在启动，请在浏览器中打开 http://127.0.0.1:%d", port)
	if open {
		// 尝试在默认浏览器中打开 URL
		go openBrowser(fmt.Sprintf("http://127.0.0.1:%d", port))
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return fmt.Errorf("服务器启动失败: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) getConfig(c *gin.Context) {
	cfg, err := config.LoadConfig(s.cfgPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load config: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *Server) saveConfig(c *gin.Context) {
	var newConfig map[string]interface{}
	if err := c.ShouldBindJSON(&newConfig); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := config.SaveWithComments(s.cfgPath, newConfig); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Failed to save config: %v", err)})
		return
	}
	c.Status(http.StatusOK)
}

type serverInfo struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	Host       string `json:"host"`
	Provider   string `json:"provider"`
	Region     string `json:"region"`
	RegionName string `json:"regionName"`
	Default    bool   `json:"default"`
}

func (s *Server) listServers(c *gin.Context) {
	loc := s.locales.For(c.DefaultQuery("lang", catalog.DefaultLocale))
	providers := catalog.SearchOrder
	if p := c.Query("provider"); p != "" {
		provider, err := catalog.ParseProvider(p)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		providers = []catalog.Provider{provider}
	}

	defaults := make(map[string]bool)
	for _, k := range catalog.DefaultSet {
		defaults[k] = true
	}

	servers := []serverInfo{}
	for _, p := range providers {
		for _, e := range s.catalog.Entries(p) {
			servers = append(servers, serverInfo{
				Key:        e.Key,
				Name:       e.Name(loc.Lang()),
				Host:       e.Host,
				Provider:   string(e.Provider),
				Region:     e.Region,
				RegionName: loc.Region(e.Region),
				Default:    defaults[e.Key],
			})
		}
	}
	c.JSON(http.StatusOK, servers)
}

func (s *Server) listHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusOK, []history.Run{})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	runs, err := s.history.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	c.JSON(http.StatusOK, runs)
}

// runRequest 是客户端通过 websocket 发送的第一条消息。
// 同一条消息中的配置字段会覆盖配置文件中的值。
type runRequest struct {
	Mode    string   `json:"mode"` // speed 或 netcheck
	Keys    []string `json:"keys"`
	Default bool     `json:"default"`
	All     bool     `json:"all"`
	Region  string   `json:"region"`
	Sites   string   `json:"sites"`
}

// wsMessage 是发送给客户端的消息
type wsMessage struct {
	Type    string      `json:"type"` // log / progress / result / summary
	Payload interface{} `json:"payload"`
}

type summaryPayload struct {
	RunID       string      `json:"runId"`
	Total       int         `json:"total"`
	Completed   int         `json:"completed"`
	Successes   int         `json:"successes"`
	Interrupted bool        `json:"interrupted"`
	AverageMbps *float64    `json:"averageMbps,omitempty"` // 没有成功结果时不输出
	Fastest     interface{} `json:"fastest,omitempty"`
	Regions     interface{} `json:"regions"`
	ResultsFile string      `json:"resultsFile,omitempty"`
	Ranked      interface{} `json:"ranked,omitempty"`
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Warnf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// 1. 等待客户端发送的测试请求
	_, msg, err := conn.ReadMessage()
	if err != nil {
		logging.Warnf("WebSocket read for request failed: %v", err)
		return
	}

	// 2. 先加载文件中的配置作为基础，再用客户端发来的数据覆盖
	runConfig, err := config.LoadConfig(s.cfgPath)
	if err != nil {
		conn.WriteJSON(wsMessage{Type: "log", Payload: fmt.Sprintf("Error: Failed to load base config: %v", err)})
		return
	}
	var req runRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		conn.WriteJSON(wsMessage{Type: "log", Payload: fmt.Sprintf("Error: Invalid request: %v", err)})
		return
	}
	if err := json.Unmarshal(msg, runConfig); err != nil {
		conn.WriteJSON(wsMessage{Type: "log", Payload: fmt.Sprintf("Error: Invalid config format: %v", err)})
		return
	}
	runConfig.ApplyDefaults()
	if err := runConfig.Validate(); err != nil {
		conn.WriteJSON(wsMessage{Type: "log", Payload: fmt.Sprintf("Error: %v", err)})
		return
	}

	// 3. 客户端断开时取消测试
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				logging.Debugf("Client disconnected: %v", err)
				return
			}
		}
	}()

	// 4. 所有写操作都通过 writeChan 交给唯一的写协程
	writeChan := make(chan wsMessage, 64)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for m := range writeChan {
			if err := conn.WriteJSON(m); err != nil {
				logging.Warnf("WebSocket write error: %v", err)
				cancel()
				for range writeChan {
				}
				return
			}
		}
	}()
	send := func(m wsMessage) {
		select {
		case writeChan <- m:
		case <-ctx.Done():
		}
	}

	s.run(ctx, runConfig, req, send)

	close(writeChan)
	<-writerDone
	conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
}

func (s *Server) run(ctx context.Context, cfg *config.Config, req runRequest, send func(wsMessage)) {
	loc := s.locales.For(cfg.Lang)
	progress := func(ev engine.Event) {
		switch ev.Kind {
		case engine.EventStart:
			send(wsMessage{Type: "log", Payload: loc.T("testing_server", ev.Index+1, ev.Total, ev.Name, ev.Host)})
		case engine.EventProgress:
			send(wsMessage{Type: "progress", Payload: gin.H{
				"key":        ev.Key,
				"downloaded": ev.Progress.Downloaded,
				"total":      ev.Progress.Total,
				"percent":    ev.Progress.Percent,
				"mbps":       ev.Progress.Mbps,
				"windowMbps": ev.Progress.WindowMbps,
			}})
		case engine.EventResult:
			if ev.Result != nil {
				send(wsMessage{Type: "result", Payload: ev.Result})
			} else if ev.Connectivity != nil {
				send(wsMessage{Type: "result", Payload: ev.Connectivity})
			}
		}
	}

	runner, err := s.newRunner(cfg, s.catalog, progress)
	if err != nil {
		send(wsMessage{Type: "log", Payload: fmt.Sprintf("Error: %v", err)})
		return
	}

	if req.Mode == "netcheck" {
		s.runNetcheck(ctx, runner, req, send, loc)
		return
	}

	hint, _ := catalog.ParseProvider(cfg.Zone)
	keys, err := s.catalog.Select(catalog.Selection{
		Keys:     req.Keys,
		Default:  req.Default,
		All:      req.All,
		Region:   req.Region,
		Provider: hint,
		Defaults: cfg.DefaultServers,
	})
	if err != nil {
		send(wsMessage{Type: "log", Payload: fmt.Sprintf("Error: %v", err)})
		return
	}
	send(wsMessage{Type: "log", Payload: loc.T("testing_multiple", len(keys))})

	batch, err := runner.Run(ctx, keys)
	if err != nil && !batch.Interrupted {
		send(wsMessage{Type: "log", Payload: fmt.Sprintf("Error: %v", err)})
		return
	}

	summary := engine.Summarize(batch.Results)
	payload := summaryPayload{
		RunID:       batch.RunID,
		Total:       batch.Total,
		Completed:   len(batch.Results),
		Successes:   len(summary.Successes),
		Interrupted: batch.Interrupted,
		Regions:     summary.Regions,
	}
	if avg, ok := summary.Average(); ok {
		payload.AverageMbps = &avg
		payload.Fastest = summary.Fastest
	}

	if len(batch.Results) > 0 {
		path := filepath.Join(s.resultDir, output.ResultsFileName(s.now()))
		if err := output.WriteJSONFile(path, batch.Results); err != nil {
			logging.Errorf("保存 JSON 文件失败: %v", err)
		} else {
			payload.ResultsFile = path
			logging.Infof("%s", loc.T("results_saved", path))
		}
		if s.history != nil {
			// 客户端断开后仍然保存已完成的结果
			if err := s.history.SaveBatch(context.Background(), batch); err != nil {
				logging.Errorf("保存测试历史失败: %v", err)
			}
		}
	}
	if batch.Interrupted {
		send(wsMessage{Type: "log", Payload: loc.T("test_interrupted")})
	}
	send(wsMessage{Type: "summary", Payload: payload})
}

func (s *Server) runNetcheck(ctx context.Context, runner *engine.Runner, req runRequest, send func(wsMessage), loc locales.Localizer) {
	kind := catalog.SiteKind(req.Sites)
	sites, err := s.catalog.Sites(kind)
	if err != nil {
		send(wsMessage{Type: "log", Payload: fmt.Sprintf("Error: %v", err)})
		return
	}
	sites = catalog.FilterSites(sites, req.Region)
	send(wsMessage{Type: "log", Payload: loc.T("netcheck_title")})

	batch, err := runner.RunConnectivity(ctx, sites)
	if err != nil && !batch.Interrupted {
		send(wsMessage{Type: "log", Payload: fmt.Sprintf("Error: %v", err)})
		return
	}
	summary := engine.SummarizeConnectivity(batch.Results)
	payload := summaryPayload{
		RunID:       batch.RunID,
		Total:       batch.Total,
		Completed:   len(batch.Results),
		Successes:   len(summary.Ranked),
		Interrupted: batch.Interrupted,
		Regions:     summary.Regions,
		Ranked:      summary.Ranked,
	}
	if summary.Best != nil {
		payload.Fastest = summary.Best
	}
	send(wsMessage{Type: "summary", Payload: payload})
}

// openBrowser 尝试在默认浏览器中打开 URL
func openBrowser(url string) {
	var err error
	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", url).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		err = exec.Command("open", url).Start()
	default:
		err = fmt.Errorf("unsupported platform")
	}
	if err != nil {
		logging.Warnf("无法自动打开浏览器: %v，请手动打开 %s", err, url)
	}
}
