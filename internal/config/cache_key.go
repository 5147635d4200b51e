package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// QuestionListVersionKey holds a counter bumped on every generated question insert.
// Page keys embed the current value so a bump orphans every cached page at once.
func (r *CacheKeyStruct) QuestionListVersionKey() string {
	return "questions:version"
}

// QuestionPageKey returns the cache key for one page of generated questions.
func (r *CacheKeyStruct) QuestionPageKey(version int64, page, perPage int) string {
	return fmt.Sprintf("questions:v%d:page:%d:limit:%d", version, page, perPage)
}

var CacheKey = NewCacheKeyStruct()
