package config

import "os"

type Config struct {
	Token    string
	MySQLDSN string
	RedisURL string
}

func Load() Config {
	return Config{
		Token:    os.Getenv("DISCORD_TOKEN"),
		MySQLDSN: getenv("MYSQL_DSN", "leetbot:leetbot@tcp(127.0.0.1:3306)/leetbot?parseTime=true"),
		RedisURL: getenv("REDIS_URL", "redis://127.0.0.1:6379/0"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
