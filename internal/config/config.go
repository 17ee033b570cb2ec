// Package config 应用配置：config.toml 加载与数据目录管理
package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"gridbook/internal/engine"
)

// AppConfig 应用配置
type AppConfig struct {
	Server ServerConfig `toml:"server"`
	Data   DataConfig   `toml:"data"`
	Engine EngineConfig `toml:"engine"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    int  `toml:"port"`
	DevMode bool `toml:"dev_mode"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir string `toml:"data_dir"`
}

// EngineConfig 公式引擎配置
type EngineConfig struct {
	Precision    int    `toml:"precision"`
	Date1904     bool   `toml:"date_1904"`
	ArgSeparator string `toml:"arg_separator"`
	NullToZero   bool   `toml:"null_to_zero"`
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	PortSpecified bool
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	ec := engine.DefaultConfig()
	return &AppConfig{
		Server: ServerConfig{
			Port:    20310,
			DevMode: false,
		},
		Data: DataConfig{
			DataDir: "data",
		},
		Engine: EngineConfig{
			Precision:    ec.Precision,
			Date1904:     ec.Date1904,
			ArgSeparator: ec.ArgSeparator,
			NullToZero:   ec.NullToZero,
		},
	}
}

// EngineConfig 转换为引擎实例配置
func (c *AppConfig) EngineConfig() *engine.Config {
	return &engine.Config{
		Precision:    c.Engine.Precision,
		Date1904:     c.Engine.Date1904,
		ArgSeparator: c.Engine.ArgSeparator,
		NullToZero:   c.Engine.NullToZero,
	}
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverAny, ok := raw["server"]
	if !ok {
		return false
	}

	serverMap, ok := serverAny.(map[string]any)
	if !ok {
		return false
	}

	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// LoadConfigWithInfo 从 config.toml 加载配置并返回元信息
func LoadConfigWithInfo() (*AppConfig, LoadConfigInfo, error) {
	info := LoadConfigInfo{}
	config := DefaultConfig()

	exeDir, err := GetExeDir()
	if err != nil {
		// 无法获取可执行文件目录，使用当前目录
		exeDir = "."
	}

	configPath := filepath.Join(exeDir, "config.toml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 配置文件不存在，使用默认配置
			return config, info, nil
		}
		return nil, info, err
	}

	info.PortSpecified = isPortSpecifiedInToml(data)

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, info, err
	}

	// 环境变量覆盖（用于 E2E / 本地运行）
	if v := os.Getenv("GRIDBOOK_DATA_DIR"); v != "" {
		config.Data.DataDir = v
	}

	return config, info, nil
}

// EnsureDataDir 确保数据目录存在
// 数据目录位于可执行文件同目录下
func EnsureDataDir(config *AppConfig) (string, error) {
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}

	dataDir := filepath.Join(exeDir, config.Data.DataDir)

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}

	// 上传与导出子目录
	for _, subdir := range []string{"uploads", "exports"} {
		if err := os.MkdirAll(filepath.Join(dataDir, subdir), 0755); err != nil {
			return "", err
		}
	}

	return dataDir, nil
}

// GetDataPath 获取数据文件路径
func GetDataPath(config *AppConfig, subdir, filename string) string {
	exeDir, _ := GetExeDir()
	if exeDir == "" {
		exeDir = "."
	}
	return filepath.Join(exeDir, config.Data.DataDir, subdir, filename)
}
