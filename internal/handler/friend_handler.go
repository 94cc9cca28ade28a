package handler

import (
	"net/http"

	"Code_Connect/internal/service"

	"github.com/gin-gonic/gin"
)

type FriendHandler struct {
	svc *service.FriendService
}

func NewFriendHandler() *FriendHandler {
	return &FriendHandler{svc: service.NewFriendService()}
}

type sendRequestReq struct {
	ToID uint64 `json:"to_id" binding:"required"`
}

// SendRequest 发好友请求
func (h *FriendHandler) SendRequest(c *gin.Context) {
	var req sendRequestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	uid := userIDFromCtx(c)
	fr, created, err := h.svc.SendRequest(c.Request.Context(), uid, req.ToID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": fr, "created": created})
}

type respondReq struct {
	RequestID uint64 `json:"request_id" binding:"required"`
	Action    string `json:"action" binding:"required,oneof=accept reject"`
}

// Respond 收件方处理请求
func (h *FriendHandler) Respond(c *gin.Context) {
	var req respondReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	uid := userIDFromCtx(c)
	fr, err := h.svc.Respond(c.Request.Context(), req.RequestID, uid, req.Action)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": fr})
}

// ListRequests 待处理请求，进出分开
func (h *FriendHandler) ListRequests(c *gin.Context) {
	uid := userIDFromCtx(c)
	incoming, outgoing, err := h.svc.ListRequests(c.Request.Context(), uid)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"incoming": incoming, "outgoing": outgoing})
}

// ListFriends 好友列表
func (h *FriendHandler) ListFriends(c *gin.Context) {
	uid := userIDFromCtx(c)
	contacts, err := h.svc.ListFriends(c.Request.Context(), uid)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": contacts})
}
