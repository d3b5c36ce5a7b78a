// Copyright 2018 The go-klaytn Authors
// This file is part of the go-klaytn library.
//
// The go-klaytn library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-klaytn library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-klaytn library. If not, see <http://www.gnu.org/licenses/>.

// Package common holds small pieces shared across packages: here, a
// bounded cache abstraction used by the chainweb client to remember
// recently-seen blocks by hash.
package common

import (
	"errors"

	lru "github.com/hashicorp/golang-lru"

	"github.com/kadena-io/chainweb-indexer/log"
)

// CacheType selects which eviction strategy NewCache builds.
type CacheType int

const (
	LRUCacheType CacheType = iota
	ARCCacheType
)

var DefaultCacheType CacheType = LRUCacheType
var logger = log.NewModuleLogger(log.Common)

// Cache is a bounded, string-keyed cache. Every block hash and parent
// hash in this codebase is already a string, so unlike the sharded
// common.Hash-keyed cache this package once held, a single key type
// suffices and no shard-routing interface is needed.
type Cache interface {
	Add(key string, value interface{}) (evicted bool)
	Get(key string) (value interface{}, ok bool)
	Contains(key string) bool
	Purge()
	Len() int
}

type lruCache struct {
	lru *lru.Cache
}

func (c *lruCache) Add(key string, value interface{}) (evicted bool) {
	return c.lru.Add(key, value)
}

func (c *lruCache) Get(key string) (value interface{}, ok bool) {
	return c.lru.Get(key)
}

func (c *lruCache) Contains(key string) bool {
	return c.lru.Contains(key)
}

func (c *lruCache) Purge() {
	c.lru.Purge()
}

func (c *lruCache) Len() int {
	return c.lru.Len()
}

type arcCache struct {
	arc *lru.ARCCache
}

func (c *arcCache) Add(key string, value interface{}) (evicted bool) {
	present := c.arc.Contains(key)
	before := c.arc.Len()
	c.arc.Add(key, value)
	return !present && c.arc.Len() == before
}

func (c *arcCache) Get(key string) (value interface{}, ok bool) {
	return c.arc.Get(key)
}

func (c *arcCache) Contains(key string) bool {
	return c.arc.Contains(key)
}

func (c *arcCache) Purge() {
	c.arc.Purge()
}

func (c *arcCache) Len() int {
	return c.arc.Len()
}

// CacheConfiger builds a concrete Cache. config.newCache lets a config
// value (hardcoded by a package like chainweb) stand in for a
// constructor without exposing lruCache or arcCache directly.
type CacheConfiger interface {
	newCache() (Cache, error)
}

// NewCache builds the Cache described by config.
func NewCache(config CacheConfiger) (Cache, error) {
	if config == nil {
		return nil, errors.New("cache config is nil")
	}
	return config.newCache()
}

// LRUConfig builds a plain least-recently-used cache: the eviction
// policy used for the chainweb client's recent-block continuity
// cache, where a block falling out of the window is a correct, benign
// eviction rather than a cache-coherency bug.
type LRUConfig struct {
	CacheSize int
}

func (c LRUConfig) newCache() (Cache, error) {
	l, err := lru.New(c.CacheSize)
	if err != nil {
		return nil, err
	}
	return &lruCache{l}, nil
}

// ARCConfig builds an adaptive-replacement cache, trading extra
// bookkeeping for resistance to scan-driven eviction storms.
type ARCConfig struct {
	CacheSize int
}

func (c ARCConfig) newCache() (Cache, error) {
	arc, err := lru.NewARC(c.CacheSize)
	if err != nil {
		return nil, err
	}
	return &arcCache{arc}, nil
}
