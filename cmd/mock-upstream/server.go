package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"

	. "github.com/roelfdiedericks/nexusrelay/internal/logging"
)

// knobs are the failure-simulation settings of one request
type knobs struct {
	fail       string
	failModels []string
	delayMs    int
	empty      bool
}

type chatMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"` // string, or Anthropic content blocks
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

var requestSeq atomic.Int64

func newRouter(defaults knobs) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/v1/chat/completions", func(c *gin.Context) { handle(c, defaults, writeChatCompletion) })
	r.POST("/v1/messages", func(c *gin.Context) { handle(c, defaults, writeAnthropicMessage) })
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	return r
}

// requestKnobs overlays query parameters on the defaults
func requestKnobs(c *gin.Context, defaults knobs) knobs {
	k := defaults
	if v := c.Query("fail"); v != "" {
		k.fail = v
	}
	if v := c.Query("fail_model"); v != "" {
		k.failModels = strings.Split(v, ",")
	}
	if v := c.Query("delay"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			k.delayMs = ms
		}
	}
	if c.Query("empty") == "1" {
		k.empty = true
	}
	return k
}

func (k knobs) failsFor(model string) bool {
	if k.fail == "" {
		return false
	}
	if len(k.failModels) == 0 {
		return true
	}
	for _, m := range k.failModels {
		if strings.TrimSpace(m) == model {
			return true
		}
	}
	return false
}

type replyWriter func(c *gin.Context, req chatRequest, k knobs)

func handle(c *gin.Context, defaults knobs, write replyWriter) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": err.Error(), "type": "invalid_request_error"}})
		return
	}
	k := requestKnobs(c, defaults)
	L_info("mock-upstream: request", "path", c.Request.URL.Path, "model", req.Model, "fail", k.fail, "delay", k.delayMs)

	if k.delayMs > 0 {
		select {
		case <-time.After(time.Duration(k.delayMs) * time.Millisecond):
		case <-c.Request.Context().Done():
			return
		}
	}

	if k.failsFor(req.Model) {
		writeFailure(c, k.fail)
		return
	}
	write(c, req, k)
}

func writeFailure(c *gin.Context, fail string) {
	L_warn("mock-upstream: simulating failure", "fail", fail)

	if fail == "quota" {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error": gin.H{
				"message": "You exceeded your current quota.",
				"type":    "insufficient_quota",
				"code":    "insufficient_quota",
			},
		})
		return
	}

	code, err := strconv.Atoi(fail)
	if err != nil || code < 400 || code >= 600 {
		code = http.StatusInternalServerError
	}
	c.JSON(code, gin.H{
		"error": gin.H{
			"message": fmt.Sprintf("Simulated error %d", code),
			"type":    "simulated_error",
			"code":    fmt.Sprintf("error_%d", code),
		},
	})
}

func lastUserMessage(req chatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			return messageText(req.Messages[i].Content)
		}
	}
	return ""
}

func messageText(raw json.RawMessage) string {
	content := gjson.ParseBytes(raw)
	if content.IsArray() {
		var parts []string
		for _, block := range content.Get("#.text").Array() {
			parts = append(parts, block.String())
		}
		return strings.Join(parts, "")
	}
	return content.String()
}

func replyText(req chatRequest) string {
	return fmt.Sprintf("mock reply from %s: %s", req.Model, lastUserMessage(req))
}

func writeChatCompletion(c *gin.Context, req chatRequest, k knobs) {
	choices := []gin.H{}
	if !k.empty {
		choices = append(choices, gin.H{
			"index":         0,
			"message":       gin.H{"role": "assistant", "content": replyText(req)},
			"finish_reason": "stop",
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"id":      fmt.Sprintf("mock-%d", requestSeq.Add(1)),
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   req.Model,
		"choices": choices,
		"usage":   gin.H{"prompt_tokens": 10, "completion_tokens": 15, "total_tokens": 25},
	})
}

func writeAnthropicMessage(c *gin.Context, req chatRequest, k knobs) {
	content := []gin.H{}
	if !k.empty {
		content = append(content, gin.H{"type": "text", "text": replyText(req)})
	}
	c.JSON(http.StatusOK, gin.H{
		"id":            fmt.Sprintf("msg_mock_%d", requestSeq.Add(1)),
		"type":          "message",
		"role":          "assistant",
		"model":         req.Model,
		"content":       content,
		"stop_reason":   "end_turn",
		"stop_sequence": nil,
		"usage":         gin.H{"input_tokens": 10, "output_tokens": 15},
	})
}
