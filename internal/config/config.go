package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"strata/internal/tier"
)

// Dir is the per-project directory holding strata's config, logs and journal.
const Dir = ".strata"

// Config represents the complete strata configuration (v1 schema)
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	// Root is the conventional components root, relative to the project root.
	Root string `json:"root" mapstructure:"root"`

	// ExtraRoots are non-standard locations whose units need explicit confirmation.
	ExtraRoots []string `json:"extraRoots" mapstructure:"extraRoots"`

	Tiers       TiersConfig       `json:"tiers" mapstructure:"tiers"`
	Scan        ScanConfig        `json:"scan" mapstructure:"scan"`
	Aliases     AliasConfig       `json:"aliases" mapstructure:"aliases"`
	Classify    ClassifyConfig    `json:"classify" mapstructure:"classify"`
	Aggregation AggregationConfig `json:"aggregation" mapstructure:"aggregation"`
	Verify      VerifyConfig      `json:"verify" mapstructure:"verify"`
	Journal     JournalConfig     `json:"journal" mapstructure:"journal"`
	Logging     LoggingConfig     `json:"logging" mapstructure:"logging"`
}

// TiersConfig names tier directories and routing locations
type TiersConfig struct {
	// Dirs maps a level name (atom, molecule, ...) to its directory name.
	Dirs map[string]string `json:"dirs" mapstructure:"dirs"`

	// RoutingDirs are directory names whose contents are routed screens.
	RoutingDirs []string `json:"routingDirs" mapstructure:"routingDirs"`
}

// ScanConfig controls unit discovery
type ScanConfig struct {
	Extensions       []string `json:"extensions" mapstructure:"extensions"`
	Exclude          []string `json:"exclude" mapstructure:"exclude"`
	TestSuffixes     []string `json:"testSuffixes" mapstructure:"testSuffixes"`
	DocsSuffixes     []string `json:"docsSuffixes" mapstructure:"docsSuffixes"`
	IgnoreDirs       []string `json:"ignoreDirs" mapstructure:"ignoreDirs"`
	MaxFileSizeBytes int      `json:"maxFileSizeBytes" mapstructure:"maxFileSizeBytes"`
	Workers          int      `json:"workers" mapstructure:"workers"`
}

// AliasConfig describes where path aliases come from
type AliasConfig struct {
	// TsConfigFiles are read in order; the first one found wins.
	TsConfigFiles []string `json:"tsconfigFiles" mapstructure:"tsconfigFiles"`

	// Paths are extra aliases in tsconfig "paths" form ("@/*": ["src/*"]).
	Paths map[string][]string `json:"paths" mapstructure:"paths"`

	// BaseURL overrides the tsconfig baseUrl when set.
	BaseURL string `json:"baseUrl" mapstructure:"baseUrl"`
}

// ClassifyConfig holds the naming conventions and call patterns the classifier keys on
type ClassifyConfig struct {
	LayoutSuffixes      []string `json:"layoutSuffixes" mapstructure:"layoutSuffixes"`
	PageSuffixes        []string `json:"pageSuffixes" mapstructure:"pageSuffixes"`
	TransientStateNames []string `json:"transientStateNames" mapstructure:"transientStateNames"`
	FetchCalls          []string `json:"fetchCalls" mapstructure:"fetchCalls"`
	SharedStateCalls    []string `json:"sharedStateCalls" mapstructure:"sharedStateCalls"`
	NavigationCalls     []string `json:"navigationCalls" mapstructure:"navigationCalls"`
	RouteReadCalls      []string `json:"routeReadCalls" mapstructure:"routeReadCalls"`
	EffectCalls         []string `json:"effectCalls" mapstructure:"effectCalls"`
}

// AggregationConfig controls generated re-export modules
type AggregationConfig struct {
	FileName string `json:"fileName" mapstructure:"fileName"`

	// PreferAggregate rewrites callers to the tier module instead of the file.
	PreferAggregate bool `json:"preferAggregate" mapstructure:"preferAggregate"`

	// GenerateDocs keeps documentation stub titles in sync when moving.
	GenerateDocs bool `json:"generateDocs" mapstructure:"generateDocs"`
}

// VerifyConfig lists the external build-verification commands
type VerifyConfig struct {
	TypeCheck      CommandConfig `json:"typeCheck" mapstructure:"typeCheck"`
	Lint           CommandConfig `json:"lint" mapstructure:"lint"`
	Test           CommandConfig `json:"test" mapstructure:"test"`
	TimeoutSeconds int           `json:"timeoutSeconds" mapstructure:"timeoutSeconds"`
}

// CommandConfig is a single external command
type CommandConfig struct {
	Enabled bool     `json:"enabled" mapstructure:"enabled"`
	Command string   `json:"command" mapstructure:"command"`
	Args    []string `json:"args" mapstructure:"args"`
}

// JournalConfig controls the sqlite move journal
type JournalConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" mapstructure:"path"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `json:"level" mapstructure:"level"`
	// File also appends every run's log to .strata/logs/run.log.
	File bool `json:"file" mapstructure:"file"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:    1,
		Root:       "src/components",
		ExtraRoots: []string{},
		Tiers: TiersConfig{
			Dirs: map[string]string{
				"atom":     "atoms",
				"molecule": "molecules",
				"organism": "organisms",
				"template": "templates",
				"page":     "pages",
			},
			RoutingDirs: []string{"pages", "app", "routes", "screens"},
		},
		Scan: ScanConfig{
			Extensions: []string{".tsx", ".ts", ".jsx", ".js"},
			Exclude: []string{
				"**/*.d.ts",
				"**/__tests__/**",
				"**/__mocks__/**",
			},
			TestSuffixes:     []string{".test", ".spec"},
			DocsSuffixes:     []string{".stories"},
			IgnoreDirs:       []string{"node_modules", "dist", "build", ".next", ".git", Dir, "coverage"},
			MaxFileSizeBytes: 1000000,
			Workers:          8,
		},
		Aliases: AliasConfig{
			TsConfigFiles: []string{"tsconfig.json", "jsconfig.json"},
			Paths:         map[string][]string{},
		},
		Classify: ClassifyConfig{
			LayoutSuffixes:      []string{"Layout", "Shell", "Template", "Frame", "Scaffold"},
			PageSuffixes:        []string{"Page", "Screen", "Route", "View"},
			TransientStateNames: []string{"hover", "hovered", "focus", "focused", "open", "isOpen", "active", "visible", "pressed", "expanded", "collapsed", "show", "tooltip", "animating"},
			FetchCalls:          []string{"fetch", "axios", "useQuery", "useMutation", "useSWR", "useInfiniteQuery", "useLazyQuery", "useFetch", "request"},
			SharedStateCalls:    []string{"useSelector", "useDispatch", "useStore", "useContext", "useRecoilState", "useRecoilValue", "useAtom", "useAtomValue", "connect"},
			NavigationCalls:     []string{"useNavigate", "useHistory", "navigate", "redirect"},
			RouteReadCalls:      []string{"useParams", "useSearchParams", "useLocation", "useRouteMatch", "useMatch", "useRouter", "usePathname"},
			EffectCalls:         []string{"useEffect", "useLayoutEffect", "localStorage", "sessionStorage", "document.cookie", "window.location", "navigator.clipboard"},
		},
		Aggregation: AggregationConfig{
			FileName:        "index.ts",
			PreferAggregate: true,
			GenerateDocs:    true,
		},
		Verify: VerifyConfig{
			TypeCheck:      CommandConfig{Enabled: true, Command: "npx", Args: []string{"tsc", "--noEmit"}},
			Lint:           CommandConfig{Enabled: true, Command: "npx", Args: []string{"eslint", "."}},
			Test:           CommandConfig{Enabled: true, Command: "npm", Args: []string{"test", "--", "--watchAll=false"}},
			TimeoutSeconds: 600,
		},
		Journal: JournalConfig{
			Enabled: true,
			Path:    filepath.Join(Dir, "journal.db"),
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// LoadConfig loads configuration from .strata/config.json layered over the defaults.
// STRATA_* environment variables override file values (STRATA_ROOT, STRATA_LOGGING_LEVEL).
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(repoRoot, Dir))

	v.SetEnvPrefix("STRATA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"root", "logging.level", "journal.enabled", "aggregation.preferAggregate"} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	cfg := DefaultConfig()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to .strata/config.json
func (c *Config) Save(repoRoot string) error {
	dir := filepath.Join(repoRoot, Dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0o644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if strings.TrimSpace(c.Root) == "" {
		return &ConfigError{Field: "root", Message: "must not be empty"}
	}
	if filepath.IsAbs(c.Root) || strings.HasPrefix(filepath.ToSlash(filepath.Clean(c.Root)), "../") {
		return &ConfigError{Field: "root", Message: "must be relative to the project root"}
	}
	if len(c.Scan.Extensions) == 0 {
		return &ConfigError{Field: "scan.extensions", Message: "at least one extension is required"}
	}

	seen := make(map[string]string)
	for name, dir := range c.Tiers.Dirs {
		if _, err := tier.Parse(name); err != nil {
			return &ConfigError{Field: "tiers.dirs", Message: err.Error()}
		}
		if dir == "" || strings.ContainsAny(dir, `/\`) {
			return &ConfigError{Field: "tiers.dirs." + name, Message: "must be a single directory name"}
		}
		if other, dup := seen[dir]; dup {
			return &ConfigError{Field: "tiers.dirs." + name, Message: "directory already used by " + other}
		}
		seen[dir] = name
	}

	if c.Aggregation.FileName == "" {
		return &ConfigError{Field: "aggregation.fileName", Message: "must not be empty"}
	}
	return nil
}

// TierDirs converts the configured directory names into a tier.Dirs table.
func (c *Config) TierDirs() tier.Dirs {
	dirs := tier.DefaultDirs()
	for name, dir := range c.Tiers.Dirs {
		if l, err := tier.Parse(name); err == nil && l.IsTier() && dir != "" {
			dirs[l] = dir
		}
	}
	return dirs
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
