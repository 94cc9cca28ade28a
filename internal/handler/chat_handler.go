package handler

import (
	"net/http"
	"strconv"

	"Code_Connect/internal/service"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	svc *service.ChatService
}

func NewChatHandler() *ChatHandler {
	return &ChatHandler{svc: service.NewChatService()}
}

type openChatReq struct {
	OtherID uint64 `json:"other_id" binding:"required"`
}

// Open 好友会话入口，必须已是好友
func (h *ChatHandler) Open(c *gin.Context) {
	var req openChatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	uid := userIDFromCtx(c)
	chat, err := h.svc.OpenFriendChat(c.Request.Context(), uid, req.OtherID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat": chat})
}

// Start 关注图入口，非互关建一次性会话
func (h *ChatHandler) Start(c *gin.Context) {
	var req openChatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	uid := userIDFromCtx(c)
	chat, err := h.svc.StartChat(c.Request.Context(), uid, req.OtherID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat": chat})
}

type sendMessageReq struct {
	ChatID  uint64 `json:"chat_id" binding:"required"`
	Content string `json:"content"`
	Image   string `json:"image"`
}

// Send 发消息，带 image 就按图片消息走
func (h *ChatHandler) Send(c *gin.Context) {
	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	uid := userIDFromCtx(c)
	var err error
	if req.Image != "" {
		_, err = h.svc.SendImageMessage(c.Request.Context(), req.ChatID, uid, req.Image)
	} else {
		_, err = h.svc.SendMessage(c.Request.Context(), req.ChatID, uid, req.Content)
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}

// Messages 会话全量消息
func (h *ChatHandler) Messages(c *gin.Context) {
	chatID, _ := strconv.ParseUint(c.Query("chat_id"), 10, 64)
	msgs, err := h.svc.Messages(c.Request.Context(), chatID, userIDFromCtx(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// List 我的会话，最近更新在前
func (h *ChatHandler) List(c *gin.Context) {
	uid := userIDFromCtx(c)
	limit, _ := strconv.Atoi(c.Query("limit"))
	chats, err := h.svc.ListChats(c.Request.Context(), uid, limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// Recent 最近会话投影
func (h *ChatHandler) Recent(c *gin.Context) {
	uid := userIDFromCtx(c)
	list, err := h.svc.RecentConversations(c.Request.Context(), uid)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list})
}
