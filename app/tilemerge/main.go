// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/q191201771/naza/pkg/bininfo"
	log "github.com/q191201771/naza/pkg/nazalog"
	"github.com/q191201771/tilemerge/pkg/base"
	"github.com/q191201771/tilemerge/pkg/tilemerge"
)

// 没有-c参数时从该环境变量中读取配置文件路径，可以写在.env中
const confEnvKey = "TILEMERGE_CONF"

func main() {
	defer func() {
		log.Sync()
	}()

	confFile := parseFlag()
	config := loadConf(confFile)
	initLog(config.Log)
	base.LogoutStartInfo()
	log.Infof("load conf succ. content=%+v", config)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runSignalHandler(cancel)

	if err := run(ctx, config); err != nil {
		log.Errorf("tilemerge failed. err=%+v", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, config *Config) error {
	var metrics *Metrics
	if config.HttpAddr != "" {
		metrics = NewMetrics()
		go runHttpServer(config.HttpAddr, metrics)
	}

	sink, err := openSink(ctx, config.Output)
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			log.Errorf("close output failed. err=%+v", err)
		}
	}()

	session := tilemerge.NewSession(sink, func(option *tilemerge.SessionOption) {
		option.MaxTileStreams = config.MaxTileStreams
	})
	for _, in := range config.Inputs {
		src, err := openSource(ctx, in)
		if err != nil {
			return err
		}
		idx, err := session.AddSource(src)
		if err != nil {
			return err
		}
		if err = session.ConfigureSource(idx, src.width, src.height, src.dcr); err != nil {
			return err
		}
	}
	log.Infof("[%s] layout:\n%s", session.UniqueKey(), session.Dump())
	if metrics != nil {
		metrics.SetLayout(session.Dump())
	}

	for {
		select {
		case <-ctx.Done():
			log.Warnf("[%s] interrupted. stat=%+v", session.UniqueKey(), session.Stat())
			return nil
		default:
		}

		status, err := session.Process()
		if err != nil {
			log.Warnf("[%s] process error. status=%s, err=%+v", session.UniqueKey(), status.ReadableString(), err)
		}
		if metrics != nil {
			metrics.Update(session.Stat())
		}
		if err = sink.Err(); err != nil {
			return err
		}

		switch status {
		case tilemerge.ProcessStatusEos:
			log.Infof("[%s] merge done. stat=%+v", session.UniqueKey(), session.Stat())
			return nil
		case tilemerge.ProcessStatusNotReady:
			// 输入都已经读入内存，不会等到新的数据
			return fmt.Errorf("[%s] session not ready", session.UniqueKey())
		}
	}
}

func openSource(ctx context.Context, in InputConfig) (*TileSource, error) {
	switch in.Format {
	case FormatTs:
		return OpenTsSource(ctx, in.Path)
	case FormatAnnexb:
		return OpenAnnexbSource(in.Path, in.Fps)
	}
	return nil, fmt.Errorf("%w. format=%s", base.ErrSourceFormat, in.Format)
}

func openSink(ctx context.Context, out OutputConfig) (ISink, error) {
	if out.Format == FormatTs {
		return NewTsSink(ctx, out.Path)
	}
	return NewAnnexbSink(out.Path)
}

func parseFlag() string {
	binInfoFlag := flag.Bool("v", false, "show bin info")
	cf := flag.String("c", "", "specify conf file")
	flag.Parse()
	if *binInfoFlag {
		_, _ = fmt.Fprint(os.Stderr, bininfo.StringifyMultiLine())
		_, _ = fmt.Fprintln(os.Stderr, base.TileMergeFullInfo)
		base.OsExitAndWaitPressIfWindows(0)
	}
	if *cf != "" {
		return *cf
	}

	// .env不存在时忽略
	_ = godotenv.Load()
	return os.Getenv(confEnvKey)
}

func loadConf(confFile string) *Config {
	defaultConfigFiles := []string{
		"tilemerge.conf.json",
		"./conf/tilemerge.conf.json",
		"../tilemerge.conf.json",
		"../conf/tilemerge.conf.json",
	}
	rawContent := base.WrapReadConfigFile(confFile, defaultConfigFiles, func() {
		_, _ = fmt.Fprintf(os.Stderr, `
Example:
  %s -c %s
  %s=%s %s
`, os.Args[0], filepath.FromSlash("./conf/tilemerge.conf.json"), confEnvKey, filepath.FromSlash("./conf/tilemerge.conf.json"), os.Args[0])
	})
	config, err := ParseConf(rawContent)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "load conf failed. file=%s err=%+v\n", confFile, err)
		base.OsExitAndWaitPressIfWindows(1)
	}
	return config
}

func initLog(opt log.Option) {
	if err := log.Init(func(option *log.Option) {
		*option = opt
	}); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "initial log failed. err=%+v\n", err)
		base.OsExitAndWaitPressIfWindows(1)
	}
	log.Info("initial log succ.")
}

func runHttpServer(addr string, m *Metrics) {
	log.Infof("start http server listen. addr=%s", addr)
	if err := http.ListenAndServe(addr, NewRouter(m)); err != nil {
		log.Error(err)
		return
	}
}
