package server

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"questionnaire_template_editor/generator"
	"questionnaire_template_editor/logger"
	"questionnaire_template_editor/render"
)

//go:embed web/dist
var embeddedStatic embed.FS

const (
	assistTimeout   = 60 * time.Second
	generateTimeout = 90 * time.Second
)

type Server struct {
	genAgent *generator.Agent
	log      *logger.Logger
	static   fs.FS
	staticFS http.Handler
}

func New(genAgent *generator.Agent, log *logger.Logger) (*Server, error) {
	if genAgent == nil {
		return nil, errors.New("generator agent required")
	}
	if log == nil {
		log = logger.Nop()
	}

	sub, err := fs.Sub(embeddedStatic, "web/dist")
	if err != nil {
		return nil, err
	}

	return &Server{
		genAgent: genAgent,
		log:      log,
		static:   sub,
		staticFS: http.FileServer(http.FS(sub)),
	}, nil
}

func (s *Server) Routes() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log), cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:   []string{"X-Request-ID"},
	}))

	r.GET("/healthcheck", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	api := r.Group("/api")
	{
		api.POST("/search", s.handleSearch)
		api.POST("/ai-assistant", s.handleAssistant)
		api.POST("/ai-followup", s.handleFollowUp)
		api.POST("/generate-template", s.handleGenerateTemplate)
	}

	r.NoRoute(s.staticHandler)
	return r
}

// staticHandler serves the embedded SPA; unknown non-API paths fall back to index.html.
func (s *Server) staticHandler(c *gin.Context) {
	upath := c.Request.URL.Path
	if strings.HasPrefix(upath, "/api/") {
		respondError(c, http.StatusNotFound, "not_found", errors.New("route not found"), "")
		return
	}
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.Status(http.StatusMethodNotAllowed)
		return
	}
	p := strings.TrimPrefix(upath, "/")
	if _, err := fs.Stat(s.static, p); p == "" || err != nil {
		// http.FileServer serves index.html for "/"
		p = ""
	}
	c.Request.URL.Path = "/" + p
	s.staticFS.ServeHTTP(c.Writer, c.Request)
}

// --- Handlers ---

type searchReq struct {
	Query string `json:"query"`
}

type searchResp struct {
	Success   bool     `json:"success"`
	Answer    string   `json:"answer"`
	Citations []string `json:"citations"`
}

type assistantReq struct {
	UserInput   string `json:"userInput"`
	ActionType  string `json:"actionType"`
	SectionName string `json:"sectionName"`
	SectionID   int    `json:"sectionId"`
}

type assistantResp struct {
	Success bool   `json:"success"`
	HTML    string `json:"html"`
	generator.AssistResult
}

type followUpResp struct {
	Success   bool     `json:"success"`
	Response  string   `json:"response"`
	HTML      string   `json:"html"`
	Citations []string `json:"citations"`
}

type generateResp struct {
	Success bool `json:"success"`
	generator.GenerationResult
}

func (s *Server) handleSearch(c *gin.Context) {
	var req searchReq
	if !bindJSON(c, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), assistTimeout)
	defer cancel()
	ans, err := s.genAgent.Search(ctx, req.Query)
	if err != nil {
		respondAgentError(c, err, "Failed to perform search")
		return
	}
	c.JSON(http.StatusOK, searchResp{Success: true, Answer: ans.Text, Citations: ans.Citations})
}

func (s *Server) handleAssistant(c *gin.Context) {
	var req assistantReq
	if !bindJSON(c, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), assistTimeout)
	defer cancel()
	res, err := s.genAgent.Assist(ctx, generator.AssistRequest{
		ActionType:  generator.ActionType(strings.TrimSpace(req.ActionType)),
		SectionName: req.SectionName,
		SectionID:   req.SectionID,
		UserInput:   req.UserInput,
	})
	if err != nil {
		respondAgentError(c, err, "Failed to get AI assistance")
		return
	}
	c.JSON(http.StatusOK, assistantResp{Success: true, HTML: s.toHTML(res.Response), AssistResult: res})
}

func (s *Server) handleFollowUp(c *gin.Context) {
	var req generator.FollowUpRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), assistTimeout)
	defer cancel()
	ans, err := s.genAgent.FollowUp(ctx, req)
	if err != nil {
		respondAgentError(c, err, "Failed to process follow-up")
		return
	}
	c.JSON(http.StatusOK, followUpResp{Success: true, Response: ans.Text, HTML: s.toHTML(ans.Text), Citations: ans.Citations})
}

func (s *Server) handleGenerateTemplate(c *gin.Context) {
	var req generator.GenerationRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), generateTimeout)
	defer cancel()
	res, err := s.genAgent.GenerateTemplate(ctx, req)
	if err != nil {
		respondAgentError(c, err, "Failed to generate template")
		return
	}
	c.JSON(http.StatusOK, generateResp{Success: true, GenerationResult: res})
}

// --- Helpers ---

// toHTML renders advisory markdown; the plain text is still returned when rendering fails.
func (s *Server) toHTML(text string) string {
	out, err := render.MarkdownToHTML(text)
	if err != nil {
		s.log.Warn("render markdown failed", "error", err)
		return ""
	}
	return out
}

func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_body", err, "Invalid request body")
		return false
	}
	return true
}
