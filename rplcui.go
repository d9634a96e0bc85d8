package rplcui

import (
	"github.com/vuuvv/rplcui/bridge"
	"github.com/vuuvv/rplcui/config"
	"github.com/vuuvv/rplcui/core"
	"github.com/vuuvv/rplcui/log"
	"github.com/vuuvv/rplcui/session"
	"github.com/vuuvv/rplcui/web"
)

type Configuration = core.Configuration
type Field = core.Field
type Diagnostic = core.Diagnostic

var DefaultConfiguration = core.Default
var DecodeConfiguration = core.Decode

type Bridge = bridge.Bridge
type Compiler = bridge.Compiler
type Session = session.Session

type Server = web.Server

var NewServer = web.NewServer

type AppConfig = config.AppConfig

var LoadConfig = config.Load

// Setup 按日志配置创建 zap logger 并安装到各个 logger
func Setup(cfg config.Log) error {
	logger, err := log.NewLogger(cfg.Level, cfg.Development)
	if err != nil {
		return err
	}
	log.SetLogger(logger)
	log.SetDefaultLogger(logger)
	log.SetHttpErrorLogger(logger)
	return nil
}

// NewBridge 使用配置中的外部编译器创建编译桥
func NewBridge(cfg *config.AppConfig) *bridge.Bridge {
	compiler := bridge.NewExecCompiler(cfg.Compiler.Path, cfg.Compiler.Args, cfg.Compiler.Timeout)
	return bridge.New(compiler, cfg.History.Size)
}
