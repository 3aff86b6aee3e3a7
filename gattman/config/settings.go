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

	"github.com/mcuadros/go-defaults"
	"github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/gattkit/gattman/gattman/gmutil"
)

// Optional per-user settings file; anything not present falls back to
// its default.
type Settings struct {
	// MTU to request on connect; 0 means don't negotiate.
	Mtu uint16 `yaml:"mtu" default:"0"`

	// Seconds to wait for incoming notifications in listen mode; 0 means
	// forever.
	ListenSecs int `yaml:"listen_secs" default:"0"`

	// Default log level when --loglevel is not given.
	LogLevel string `yaml:"log_level" default:"info"`
}

func NewSettings() *Settings {
	s := &Settings{}
	defaults.SetDefaults(s)
	return s
}

func settingsFilename() (string, error) {
	dir, err := homedir.Dir()
	if err != nil {
		return "", gmutil.NewGmError(err.Error())
	}

	return filepath.Join(dir, gmutil.ToolInfo.SettingsFilename), nil
}

// Reads the settings file; a missing file yields defaults.
func ReadSettings() (*Settings, error) {
	s := NewSettings()

	filename, err := settingsFilename()
	if err != nil {
		return nil, err
	}

	blob, err := ioutil.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, gmutil.ChildGmError(err)
	}

	log.Debugf("Reading settings from %s", filename)
	if err := yaml.Unmarshal(blob, s); err != nil {
		return nil, gmutil.FmtGmError("error reading settings (%s): %s",
			filename, err.Error())
	}

	return s, nil
}

var globalSettings *Settings

func GlobalSettings() *Settings {
	if globalSettings == nil {
		var err error
		globalSettings, err = ReadSettings()
		if err != nil {
			log.Warnf("Ignoring unreadable settings file: %s", err.Error())
			globalSettings = NewSettings()
		}
	}

	return globalSettings
}
