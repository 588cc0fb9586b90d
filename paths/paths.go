package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// KestrelHome is the name of the application folder under the XDG base
// directories.
const KestrelHome = "kestrel"

type (
	// CachePath is a path to a file or directory holding disposable data.
	CachePath string
	// ConfigPath is a path to a file or directory holding configuration.
	ConfigPath string
	// DataPath is a path to a file or directory holding data the node
	// cannot rebuild on its own, like keys.
	DataPath string
	// StatePath is a path to a file or directory holding rebuildable
	// state, like databases and snapshot archives.
	StatePath string
)

func (p CachePath) String() string  { return string(p) }
func (p ConfigPath) String() string { return string(p) }
func (p DataPath) String() string   { return string(p) }
func (p StatePath) String() string  { return string(p) }

var (
	// NodeConfigHome is the folder containing the configuration files of
	// the node.
	NodeConfigHome = ConfigPath("node")

	// NodeConfigFile is the configuration file of the node.
	NodeConfigFile = JoinConfigPath(NodeConfigHome, "config.toml")

	// GenesisConfigFile is the genesis file of the chain the node runs on.
	GenesisConfigFile = JoinConfigPath(NodeConfigHome, "genesis.json")

	// NodeDataHome is the folder containing the data of the node.
	NodeDataHome = DataPath("node")

	// NodeStateHome is the folder containing the state of the node.
	NodeStateHome = StatePath("node")

	// AccountsStateHome is the folder containing the accounts database.
	AccountsStateHome = JoinStatePath(NodeStateHome, "accounts")

	// BlockstoreStateHome is the folder containing the block store.
	BlockstoreStateHome = JoinStatePath(NodeStateHome, "blockstore")

	// SnapshotStateHome is the folder containing the snapshot archives.
	SnapshotStateHome = JoinStatePath(NodeStateHome, "snapshots")

	// SnapshotPendingStateHome is the scratch folder used while building
	// snapshot archives. It is wiped at start up.
	SnapshotPendingStateHome = JoinStatePath(SnapshotStateHome, "pending")
)

// JoinCachePath joins any number of path elements into a single CachePath.
func JoinCachePath(p CachePath, elems ...string) CachePath {
	return CachePath(filepath.Join(append([]string{p.String()}, elems...)...))
}

// JoinConfigPath joins any number of path elements into a single ConfigPath.
func JoinConfigPath(p ConfigPath, elems ...string) ConfigPath {
	return ConfigPath(filepath.Join(append([]string{p.String()}, elems...)...))
}

// JoinDataPath joins any number of path elements into a single DataPath.
func JoinDataPath(p DataPath, elems ...string) DataPath {
	return DataPath(filepath.Join(append([]string{p.String()}, elems...)...))
}

// JoinStatePath joins any number of path elements into a single StatePath.
func JoinStatePath(p StatePath, elems ...string) StatePath {
	return StatePath(filepath.Join(append([]string{p.String()}, elems...)...))
}

// Paths abstracts the location of the files and directories used by the
// node, so commands do not have to care whether they run against the
// standard XDG layout or a custom home.
type Paths interface {
	CreateCachePathFor(CachePath) (string, error)
	CreateConfigPathFor(ConfigPath) (string, error)
	CreateDataPathFor(DataPath) (string, error)
	CreateStatePathFor(StatePath) (string, error)
	CachePathFor(CachePath) string
	ConfigPathFor(ConfigPath) string
	DataPathFor(DataPath) string
	StatePathFor(StatePath) string
}

// New instantiates the specific implementation of the Paths interface based
// on the value of customHome. If a customHome is specified the custom
// implementation CustomPaths is returned, the standard DefaultPaths
// otherwise.
func New(customHome string) Paths {
	if len(customHome) != 0 {
		return &CustomPaths{CustomHome: customHome}
	}
	return &DefaultPaths{}
}

// CustomPaths lays every file out under a single custom root directory.
type CustomPaths struct {
	CustomHome string
}

func (p *CustomPaths) CachePathFor(rel CachePath) string {
	return filepath.Join(p.CustomHome, "cache", rel.String())
}

func (p *CustomPaths) ConfigPathFor(rel ConfigPath) string {
	return filepath.Join(p.CustomHome, "config", rel.String())
}

func (p *CustomPaths) DataPathFor(rel DataPath) string {
	return filepath.Join(p.CustomHome, "data", rel.String())
}

func (p *CustomPaths) StatePathFor(rel StatePath) string {
	return filepath.Join(p.CustomHome, "state", rel.String())
}

func (p *CustomPaths) CreateCachePathFor(rel CachePath) (string, error) {
	return createPath(p.CachePathFor(rel))
}

func (p *CustomPaths) CreateConfigPathFor(rel ConfigPath) (string, error) {
	return createPath(p.ConfigPathFor(rel))
}

func (p *CustomPaths) CreateDataPathFor(rel DataPath) (string, error) {
	return createPath(p.DataPathFor(rel))
}

func (p *CustomPaths) CreateStatePathFor(rel StatePath) (string, error) {
	return createPath(p.StatePathFor(rel))
}

// DefaultPaths resolves files against the XDG base directories.
type DefaultPaths struct{}

func (p *DefaultPaths) CachePathFor(rel CachePath) string {
	return filepath.Join(xdg.CacheHome, KestrelHome, rel.String())
}

func (p *DefaultPaths) ConfigPathFor(rel ConfigPath) string {
	return filepath.Join(xdg.ConfigHome, KestrelHome, rel.String())
}

func (p *DefaultPaths) DataPathFor(rel DataPath) string {
	return filepath.Join(xdg.DataHome, KestrelHome, rel.String())
}

func (p *DefaultPaths) StatePathFor(rel StatePath) string {
	return filepath.Join(xdg.StateHome, KestrelHome, rel.String())
}

func (p *DefaultPaths) CreateCachePathFor(rel CachePath) (string, error) {
	return createPath(p.CachePathFor(rel))
}

func (p *DefaultPaths) CreateConfigPathFor(rel ConfigPath) (string, error) {
	return createPath(p.ConfigPathFor(rel))
}

func (p *DefaultPaths) CreateDataPathFor(rel DataPath) (string, error) {
	return createPath(p.DataPathFor(rel))
}

func (p *DefaultPaths) CreateStatePathFor(rel StatePath) (string, error) {
	return createPath(p.StatePathFor(rel))
}

func createPath(path string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", err
	}
	return path, nil
}
