package main

import (
	"context"
	"log"
	"strings"

	"Code_Connect/internal/config"
	"Code_Connect/internal/model"
	"Code_Connect/internal/pkg"
	"Code_Connect/internal/repository/mysql"
	"Code_Connect/internal/repository/redis"
	"Code_Connect/internal/router"
	"Code_Connect/internal/service"
)

func main() {
	config.Load()
	cfg := config.AppConfig

	if cfg.JWTSecret != "" {
		pkg.AccessSecret = []byte(cfg.JWTSecret)
	}

	if err := mysql.InitDB(cfg.MySQLDSN); err != nil {
		panic(err)
	}

	// 连接redis
	if err := redis.Init(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); err != nil {
		panic(err)
	}
	defer redis.Close()

	// 自动建表（开发阶段 OK）。唯一索引建不出来不能带病启动
	err := mysql.DB.AutoMigrate(
		&model.User{},
		&model.Follow{},
		&model.SocialOutbox{},
		&model.FriendRequest{},
		&model.Chat{},
		&model.ChatMessage{},
		&model.Group{},
		&model.GroupMember{},
		&model.GroupMessage{},
		&model.GroupReaction{},
	)
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 出站事件投 Kafka，连不上就退回日志 sender
	sender := service.LogSender
	producer, err := pkg.NewKafkaProducer(pkg.KafkaConfig{
		Brokers: strings.Split(cfg.KafkaBrokers, ","),
		Topic:   cfg.KafkaTopic,
	})
	if err != nil {
		log.Printf("kafka producer init failed, falling back to log sender: %v", err)
	} else {
		defer producer.Close()
		sender = func(ctx context.Context, ob *model.SocialOutbox) error {
			return producer.Send(ctx, pkg.MakeKeyFromID(ob.ActorID), []byte(ob.Payload))
		}
	}
	go service.NewOutboxRelayer(sender).Run(ctx)
	go service.NewFollowCountReconciler().Run(ctx)

	// Gin
	r := router.InitRouter()
	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatal(err)
	}
}
