package redis

import "github.com/redis/go-redis/v9"

func zMember(score float64, member string) redis.Z {
	return redis.Z{Score: score, Member: member}
}
