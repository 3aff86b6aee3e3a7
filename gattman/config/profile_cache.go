/**
 * Licensed to the Apache Software Foundation (ASF) under one
 * or more contributor license agreements.  See the NOTICE file
 * distributed with this work for additional information
 * regarding copyright ownership.  The ASF licenses this file
 * to you under the Apache License, Version 2.0 (the
 * "License"); you may not use this file except in compliance
 * with the License.  You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package config

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/fatih/structs"
	"github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
	"github.com/ugorji/go/codec"

	"github.com/gattkit/gattman/gattact/attdefs"
	"github.com/gattkit/gattman/gattman/gmutil"
)

// CBOR-encoded cache of the most recent discovery results, keyed by
// connection profile name.  Purely an optimization for display; a stale
// entry is overwritten by the next discovery.

type CachedChr struct {
	Uuid       string `codec:"uuid"`
	DefHandle  uint16 `codec:"def_handle"`
	ValHandle  uint16 `codec:"val_handle"`
	Properties uint8  `codec:"properties"`
}

type CachedSvc struct {
	Uuid        string      `codec:"uuid"`
	StartHandle uint16      `codec:"start_handle"`
	EndHandle   uint16      `codec:"end_handle"`
	Chrs        []CachedChr `codec:"chrs"`
}

type CachedPeer struct {
	Mtu  uint16      `codec:"mtu"`
	Svcs []CachedSvc `codec:"svcs"`
}

type ProfileCache struct {
	peers map[string]*CachedPeer
}

func NewProfileCache() *ProfileCache {
	return &ProfileCache{
		peers: map[string]*CachedPeer{},
	}
}

func CachedSvcFromSvc(svc attdefs.Service,
	chrs []attdefs.Characteristic) CachedSvc {

	cs := CachedSvc{
		Uuid:        svc.Uuid.String(),
		StartHandle: svc.StartHandle,
		EndHandle:   svc.EndHandle,
	}

	for _, c := range chrs {
		cs.Chrs = append(cs.Chrs, CachedChr{
			Uuid:       c.Uuid.String(),
			DefHandle:  c.DefHandle,
			ValHandle:  c.ValHandle,
			Properties: uint8(c.Properties),
		})
	}

	return cs
}

func profileCacheFilename() (string, error) {
	dir, err := homedir.Dir()
	if err != nil {
		return "", gmutil.NewGmError(err.Error())
	}

	return filepath.Join(dir, gmutil.ToolInfo.CacheFilename), nil
}

func (pc *ProfileCache) Get(name string) *CachedPeer {
	return pc.peers[name]
}

func (pc *ProfileCache) Put(name string, peer *CachedPeer) {
	pc.peers[name] = peer
}

func (pc *ProfileCache) save() error {
	var b []byte
	enc := codec.NewEncoderBytes(&b, new(codec.CborHandle))

	// Convert each entry to a map so that the CBOR keys come from the
	// codec tags.
	m := make(map[string]map[string]interface{}, len(pc.peers))
	for name, peer := range pc.peers {
		s := structs.New(peer)
		s.TagName = "codec"
		m[name] = s.Map()
	}

	if err := enc.Encode(m); err != nil {
		return gmutil.ChildGmError(err)
	}

	filename, err := profileCacheFilename()
	if err != nil {
		return err
	}

	if err := ioutil.WriteFile(filename, b, 0644); err != nil {
		return gmutil.ChildGmError(err)
	}

	return nil
}

func (pc *ProfileCache) load() error {
	filename, err := profileCacheFilename()
	if err != nil {
		return err
	}

	blob, err := ioutil.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return gmutil.ChildGmError(err)
	}

	peers := map[string]*CachedPeer{}
	dec := codec.NewDecoderBytes(blob, new(codec.CborHandle))
	if err := dec.Decode(&peers); err != nil {
		return gmutil.FmtGmError("error reading profile cache (%s): %s",
			filename, err.Error())
	}

	pc.peers = peers
	return nil
}

var globalProfileCache *ProfileCache

func GlobalProfileCache() *ProfileCache {
	if globalProfileCache == nil {
		globalProfileCache = NewProfileCache()
		if err := globalProfileCache.load(); err != nil {
			log.Warnf("Ignoring unreadable profile cache: %s", err.Error())
		}
	}

	return globalProfileCache
}

// Records discovery results for the specified profile and persists the
// cache.
func UpdateProfileCache(name string, mtu uint16, svcs []CachedSvc) error {
	pc := GlobalProfileCache()
	pc.Put(name, &CachedPeer{
		Mtu:  mtu,
		Svcs: svcs,
	})

	return pc.save()
}
