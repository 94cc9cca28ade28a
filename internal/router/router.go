package router

import (
	"Code_Connect/internal/handler"
	"Code_Connect/internal/middleware"

	"github.com/gin-gonic/gin"
)

func InitRouter() *gin.Engine {
	r := gin.Default()

	follow := handler.NewFollowHandler()
	friend := handler.NewFriendHandler()
	chat := handler.NewChatHandler()
	group := handler.NewGroupHandler()

	// 关注相关接口
	followGroup := r.Group("/api/follow")
	followGroup.Use(middleware.AuthMiddleware())
	{
		followGroup.POST("/", follow.Follow)
		followGroup.GET("/status", follow.Status)
		followGroup.GET("/followings", follow.ListFollowings)
		followGroup.GET("/followers", follow.ListFollowers)
	}

	// 好友请求相关接口
	friendGroup := r.Group("/api/friends")
	friendGroup.Use(middleware.AuthMiddleware())
	{
		friendGroup.POST("/request", friend.SendRequest)
		friendGroup.POST("/act", friend.Respond)
		friendGroup.GET("/requests", friend.ListRequests)
		friendGroup.GET("/list", friend.ListFriends)
	}

	// 单聊相关接口
	chatGroup := r.Group("/api/chat")
	chatGroup.Use(middleware.AuthMiddleware())
	{
		chatGroup.POST("/open", chat.Open)
		chatGroup.POST("/start", chat.Start)
		chatGroup.POST("/send", chat.Send)
		chatGroup.GET("/messages", chat.Messages)
		chatGroup.GET("/list", chat.List)
		chatGroup.GET("/recent", chat.Recent)
	}

	// 群聊相关接口
	groupGroup := r.Group("/api/group")
	groupGroup.Use(middleware.AuthMiddleware())
	{
		groupGroup.POST("/create", group.Create)
		groupGroup.POST("/update", group.Update)
		groupGroup.POST("/addAdmin", group.AddAdmin)
		groupGroup.POST("/removeAdmin", group.RemoveAdmin)
		groupGroup.POST("/send", group.Post)
		groupGroup.POST("/deleteMessage", group.DeleteMessage)
		groupGroup.POST("/leave", group.Leave)
		groupGroup.POST("/react", group.React)
		groupGroup.GET("/messages", group.Messages)
		groupGroup.GET("/members", group.Members)
		groupGroup.GET("/list", group.List)
	}

	return r
}
