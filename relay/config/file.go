package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	yaml "gopkg.in/yaml.v2"
)

// fileConfig 配置文件结构，兼容旧版 config.json（JSON 也是合法的 YAML）
type fileConfig struct {
	Server fileServer `yaml:"server"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	BigQuery struct {
		ProjectID   string `yaml:"projectId"`
		DatasetID   string `yaml:"datasetId"`
		TableID     string `yaml:"tableId"`
		KeyFilename string `yaml:"keyFilename"`
	} `yaml:"bigQuery"`

	Sink struct {
		Type  string `yaml:"type"`
		MySQL struct {
			DSN   string `yaml:"dsn"`
			Table string `yaml:"table"`
		} `yaml:"mysql"`
		Postgres struct {
			DSN   string `yaml:"dsn"`
			Table string `yaml:"table"`
		} `yaml:"postgres"`
		DynamoDB struct {
			Table    string `yaml:"table"`
			Region   string `yaml:"region"`
			Endpoint string `yaml:"endpoint"`
		} `yaml:"dynamodb"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Stream   string `yaml:"stream"`
		} `yaml:"redis"`
		HTTP struct {
			URL string `yaml:"url"`
		} `yaml:"http"`
	} `yaml:"sink"`
}

type fileServer struct {
	Port         int    `yaml:"port"`
	AllowOrigin  string `yaml:"allowOrigin"`
	Workers      int    `yaml:"workers"`
	MaxBodyBytes int64  `yaml:"maxBodyBytes"`
}

func (s fileServer) portString() string {
	if s.Port == 0 {
		return ""
	}
	return strconv.Itoa(s.Port)
}

// loadFile 读取配置文件，相对路径的密钥文件按配置文件所在目录解析
func loadFile(path string) (*fileConfig, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", absPath, err)
	}

	if key := fc.BigQuery.KeyFilename; key != "" && !filepath.IsAbs(key) {
		fc.BigQuery.KeyFilename = filepath.Join(filepath.Dir(absPath), key)
	}

	return &fc, nil
}
