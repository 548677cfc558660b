package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"supplyq/internal/platform"
	"supplyq/internal/scape"
)

type trainRequest struct {
	Episodes int `json:"episodes"`
}

type speedRequest struct {
	Speed float64 `json:"speed"`
}

type epsilonRequest struct {
	Epsilon *float64 `json:"epsilon"`
}

func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, s.controller.Status())
}

func (s *Server) trace(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rewards": s.controller.Trace()})
}

func (s *Server) qtable(c *gin.Context) {
	c.JSON(http.StatusOK, s.controller.TableStats())
}

func (s *Server) step(c *gin.Context) {
	res, err := s.controller.Step(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) train(c *gin.Context) {
	var req trainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	res, err := s.controller.Train(c.Request.Context(), req.Episodes)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) startLive(c *gin.Context) {
	var req speedRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	session, err := s.controller.StartLive(req.Speed)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "running", "session": session})
}

func (s *Server) stopLive(c *gin.Context) {
	if err := s.controller.StopLive(); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

func (s *Server) setSpeed(c *gin.Context) {
	var req speedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := s.controller.SetSpeed(req.Speed); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"speed": req.Speed})
}

func (s *Server) setEpsilon(c *gin.Context) {
	var req epsilonRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Epsilon == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "epsilon is required"})
		return
	}
	s.controller.SetEpsilon(*req.Epsilon)
	c.JSON(http.StatusOK, gin.H{"epsilon": s.controller.Status().Epsilon})
}

func (s *Server) nodes(c *gin.Context) {
	c.JSON(http.StatusOK, s.controller.Nodes())
}

func (s *Server) node(c *gin.Context) {
	node, err := s.controller.Node(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, node)
}

func (s *Server) updateNode(c *gin.Context) {
	var patch scape.NodePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := s.controller.UpdateNode(c.Param("id"), patch); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated", "id": c.Param("id")})
}

func (s *Server) save(c *gin.Context) {
	if err := s.controller.Save(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}

func (s *Server) load(c *gin.Context) {
	loaded, err := s.controller.Load(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"loaded": loaded, "table": s.controller.TableStats()})
}

func (s *Server) reset(c *gin.Context) {
	if err := s.controller.Reset(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

func (s *Server) fail(c *gin.Context, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, platform.ErrModeBusy), errors.Is(err, platform.ErrNotRunning):
		return http.StatusConflict
	case errors.Is(err, platform.ErrInvalidEpisodes),
		errors.Is(err, platform.ErrInvalidSpeed),
		errors.Is(err, scape.ErrNonFinite):
		return http.StatusBadRequest
	case errors.Is(err, scape.ErrUnknownNode):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
