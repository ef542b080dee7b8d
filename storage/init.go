package storage

import (
	"ChallengeUp/config"
	"ChallengeUp/storage/database"
	"ChallengeUp/storage/mq"
	"ChallengeUp/storage/redis"
)

// Init 统一初始化存储层，TRACKER_STORE=memory 时跳过数据库
func Init() error {
	if config.Cfg.TrackerStore != "memory" {
		if err := database.Init(); err != nil {
			return err
		}
	}

	if err := redis.Init(); err != nil {
		return err
	}

	if err := mq.Init(); err != nil {
		return err
	}

	return nil
}
