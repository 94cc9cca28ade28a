package handler

import (
	"net/http"
	"strconv"

	"Code_Connect/internal/service"

	"github.com/gin-gonic/gin"
)

type GroupHandler struct {
	svc *service.GroupService
}

func NewGroupHandler() *GroupHandler {
	return &GroupHandler{svc: service.NewGroupService()}
}

type createGroupReq struct {
	Name         string   `json:"name" binding:"required"`
	MemberIDs    []uint64 `json:"member_ids"`
	ProfileImage string   `json:"profile_image"`
}

// Create 建群
func (h *GroupHandler) Create(c *gin.Context) {
	var req createGroupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	uid := userIDFromCtx(c)
	g, err := h.svc.CreateGroup(c.Request.Context(), req.Name, uid, req.MemberIDs, req.ProfileImage)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"group": g})
}

type updateGroupReq struct {
	GroupID      uint64    `json:"group_id" binding:"required"`
	Name         *string   `json:"name"`
	ProfileImage *string   `json:"profile_image"`
	AdminMode    *bool     `json:"admin_mode"`
	Members      *[]uint64 `json:"members"`
}

// Update 管理员改群资料/成员名单
func (h *GroupHandler) Update(c *gin.Context) {
	var req updateGroupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	uid := userIDFromCtx(c)
	g, err := h.svc.UpdateGroup(c.Request.Context(), req.GroupID, uid, service.GroupPatch{
		Name:         req.Name,
		ProfileImage: req.ProfileImage,
		AdminMode:    req.AdminMode,
		Members:      req.Members,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"group": g})
}

type adminReq struct {
	GroupID  uint64 `json:"group_id" binding:"required"`
	TargetID uint64 `json:"target_id" binding:"required"`
}

// AddAdmin 升管理员
func (h *GroupHandler) AddAdmin(c *gin.Context) {
	var req adminReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	uid := userIDFromCtx(c)
	if err := h.svc.AddAdmin(c.Request.Context(), req.GroupID, uid, req.TargetID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}

// RemoveAdmin 降管理员
func (h *GroupHandler) RemoveAdmin(c *gin.Context) {
	var req adminReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	uid := userIDFromCtx(c)
	if err := h.svc.RemoveAdmin(c.Request.Context(), req.GroupID, uid, req.TargetID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}

type postMessageReq struct {
	GroupID  uint64 `json:"group_id" binding:"required"`
	Content  string `json:"content"`
	ImageURL string `json:"image_url"`
}

// Post 发群消息
func (h *GroupHandler) Post(c *gin.Context) {
	var req postMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	uid := userIDFromCtx(c)
	if err := h.svc.PostMessage(c.Request.Context(), req.GroupID, uid, req.Content, req.ImageURL); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}

type deleteMessageReq struct {
	GroupID uint64 `json:"group_id" binding:"required"`
	Index   *int   `json:"index" binding:"required"`
}

// DeleteMessage 管理员按序号删消息
func (h *GroupHandler) DeleteMessage(c *gin.Context) {
	var req deleteMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	uid := userIDFromCtx(c)
	if err := h.svc.DeleteMessage(c.Request.Context(), req.GroupID, uid, *req.Index); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}

type leaveGroupReq struct {
	GroupID uint64 `json:"group_id" binding:"required"`
}

// Leave 退群
func (h *GroupHandler) Leave(c *gin.Context) {
	var req leaveGroupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	uid := userIDFromCtx(c)
	if err := h.svc.LeaveGroup(c.Request.Context(), req.GroupID, uid); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}

type reactReq struct {
	GroupID  uint64 `json:"group_id" binding:"required"`
	Index    *int   `json:"index" binding:"required"`
	Reaction string `json:"reaction" binding:"required,oneof=like dislike"`
}

// React 图片消息点赞/点踩
func (h *GroupHandler) React(c *gin.Context) {
	var req reactReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	uid := userIDFromCtx(c)
	likes, dislikes, err := h.svc.ReactToMessage(c.Request.Context(), req.GroupID, uid, *req.Index, req.Reaction)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"likes": likes, "dislikes": dislikes})
}

// Messages 群消息列表
func (h *GroupHandler) Messages(c *gin.Context) {
	groupID, _ := strconv.ParseUint(c.Query("group_id"), 10, 64)
	uid := userIDFromCtx(c)
	msgs, err := h.svc.Messages(c.Request.Context(), groupID, uid)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// Members 群成员列表
func (h *GroupHandler) Members(c *gin.Context) {
	groupID, _ := strconv.ParseUint(c.Query("group_id"), 10, 64)
	rows, err := h.svc.Members(c.Request.Context(), groupID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": rows})
}

// List 我所在的群
func (h *GroupHandler) List(c *gin.Context) {
	uid := userIDFromCtx(c)
	groups, err := h.svc.ListGroups(c.Request.Context(), uid)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}
