package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config 应用配置，.env 或环境变量加载
type Config struct {
	HTTPAddr      string `mapstructure:"HTTP_ADDR"`
	MySQLDSN      string `mapstructure:"MYSQL_DSN"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	KafkaBrokers  string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic    string `mapstructure:"KAFKA_TOPIC"`
	JWTSecret     string `mapstructure:"JWT_SECRET"`
}

var AppConfig *Config

// Load 读取 .env，找不到就退回环境变量
func Load() {
	viper.AddConfigPath(".")
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	viper.SetDefault("HTTP_ADDR", ":8080")
	viper.SetDefault("MYSQL_DSN", "user:password@tcp(127.0.0.1:3306)/code_connect?charset=utf8mb4&parseTime=True")
	viper.SetDefault("REDIS_ADDR", "127.0.0.1:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("KAFKA_BROKERS", "127.0.0.1:9092")
	viper.SetDefault("KAFKA_TOPIC", "social-events")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("no .env file, loading from environment")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("unable to decode config: %v", err)
	}
}
