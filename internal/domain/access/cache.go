package access

import "time"

type Cache interface {
	Get(babyID, userID string) (Role, bool)
	Set(babyID, userID string, role Role, ttl time.Duration)
	Delete(babyID, userID string)
	DeleteBaby(babyID string)
}

type noopCache struct{}

func (noopCache) Get(string, string) (Role, bool) {
	return RoleNone, false
}

func (noopCache) Set(string, string, Role, time.Duration) {}

func (noopCache) Delete(string, string) {}

func (noopCache) DeleteBaby(string) {}
