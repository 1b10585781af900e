package config

import "time"

// Config is the root configuration of the adapter process.
type Config struct {
	Logger    LoggerConfig `yaml:"logger"`
	Server    ServerConfig `yaml:"http-server"`
	Store     StoreConfig  `yaml:"store"`
	Pool      PoolConfig   `yaml:"pool"`
	ZooKeeper ZKConfig     `yaml:"zookeeper"`
}

type LoggerConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// ServerConfig covers the admin HTTP surface.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StoreConfig names the (keyspace, column family) pair the Store binds
// and the per-call RPC deadline.
type StoreConfig struct {
	Keyspace     string        `yaml:"keyspace"`
	ColumnFamily string        `yaml:"column_family"`
	RPCTimeout   time.Duration `yaml:"rpc_timeout"`
}

// PoolConfig sizes the connection pool. LeaseWarnAfter is how long a
// borrowed connection may stay out before the watchdog logs it.
type PoolConfig struct {
	Hosts          []string      `yaml:"hosts"`
	Size           int           `yaml:"size"`
	LeaseWarnAfter time.Duration `yaml:"lease_warn_after"`
}

// ZKConfig points at the ZooKeeper ensemble that carries the live
// backend endpoint set. Empty Servers disables discovery and leaves the
// static host list in place.
type ZKConfig struct {
	Servers  []string `yaml:"servers"`
	RootPath string   `yaml:"root_path"`
}

// Default returns a baseline development config.
func Default() Config {
	return Config{
		Logger: LoggerConfig{Level: "DEBUG", JSON: false},
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 5 * time.Second,
		},
		Store: StoreConfig{
			Keyspace:     "graph",
			ColumnFamily: "edgestore",
			RPCTimeout:   3 * time.Second,
		},
		Pool: PoolConfig{
			Hosts:          []string{"127.0.0.1:9160"},
			Size:           8,
			LeaseWarnAfter: 30 * time.Second,
		},
		ZooKeeper: ZKConfig{
			RootPath: "/kcvstore",
		},
	}
}
