// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/q191201771/naza/pkg/nazajson"
	log "github.com/q191201771/naza/pkg/nazalog"
	"github.com/q191201771/tilemerge/pkg/base"
	"github.com/q191201771/tilemerge/pkg/tilemerge"
)

const (
	FormatAnnexb = "annexb"
	FormatTs     = "ts"
)

const defaultFps = 25

type Config struct {
	ConfVersion    string        `json:"conf_version"`
	Inputs         []InputConfig `json:"inputs"`
	Output         OutputConfig  `json:"output"`
	MaxTileStreams int           `json:"max_tile_streams"`
	HttpAddr       string        `json:"http_addr"`
	Log            log.Option    `json:"log"`
}

type InputConfig struct {
	Path   string `json:"path"`
	Format string `json:"format"`

	// Fps annexb文件没有时间戳，按该帧率生成
	Fps int `json:"fps"`
}

type OutputConfig struct {
	Path   string `json:"path"`
	Format string `json:"format"`
}

func LoadConf(confFile string) (*Config, error) {
	rawContent, err := os.ReadFile(confFile)
	if err != nil {
		return nil, err
	}
	return ParseConf(rawContent)
}

// ParseConf 解析json配置，检查必须项，并给不存在的配置项设置默认值
func ParseConf(rawContent []byte) (*Config, error) {
	var config Config
	if err := json.Unmarshal(rawContent, &config); err != nil {
		return nil, err
	}

	j, err := nazajson.New(rawContent)
	if err != nil {
		return nil, err
	}

	// 检查配置必须项
	if len(config.Inputs) == 0 {
		return nil, fmt.Errorf("%w. no inputs", base.ErrConfig)
	}
	if config.Output.Path == "" {
		return nil, fmt.Errorf("%w. no output path", base.ErrConfig)
	}

	if config.ConfVersion != base.ConfVersion {
		log.Warnf("config version invalid. conf version of tilemerge=%s, conf version of config file=%s",
			base.ConfVersion, config.ConfVersion)
	}

	// 配置不存在时，设置默认值
	for i := range config.Inputs {
		in := &config.Inputs[i]
		if in.Format == "" {
			in.Format = FormatAnnexb
		}
		if in.Fps <= 0 {
			in.Fps = defaultFps
		}
		if in.Format != FormatAnnexb && in.Format != FormatTs {
			return nil, fmt.Errorf("%w. input=%s, format=%s", base.ErrSourceFormat, in.Path, in.Format)
		}
	}
	if config.Output.Format == "" {
		config.Output.Format = FormatAnnexb
	}
	if config.Output.Format != FormatAnnexb && config.Output.Format != FormatTs {
		return nil, fmt.Errorf("%w. output format=%s", base.ErrConfig, config.Output.Format)
	}
	if !j.Exist("max_tile_streams") {
		config.MaxTileStreams = tilemerge.MaxTileStreams
	}
	if len(config.Inputs) > config.MaxTileStreams {
		return nil, fmt.Errorf("%w. inputs=%d, max_tile_streams=%d", base.ErrConfig, len(config.Inputs), config.MaxTileStreams)
	}

	if !j.Exist("log.level") {
		config.Log.Level = log.LevelInfo
	}
	if !j.Exist("log.filename") {
		config.Log.Filename = "./logs/tilemerge.log"
	}
	if !j.Exist("log.is_to_stdout") {
		config.Log.IsToStdout = true
	}
	if !j.Exist("log.is_rotate_daily") {
		config.Log.IsRotateDaily = true
	}
	if !j.Exist("log.short_file_flag") {
		config.Log.ShortFileFlag = true
	}
	if !j.Exist("log.assert_behavior") {
		config.Log.AssertBehavior = log.AssertError
	}

	return &config, nil
}
