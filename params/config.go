package params

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds every knob of both pipelines. It is loaded once by
// LoadAndParse and passed down explicitly.
type Config struct {
	// Corpus
	CorpusPath string `mapstructure:"corpus_path"`
	Lang1      string `mapstructure:"lang1"`
	Lang2      string `mapstructure:"lang2"`
	Reverse    bool   `mapstructure:"reverse"`
	MaxLength  int    `mapstructure:"max_length"` // attention span and sentence filter

	// Seq2seq model / training
	HiddenSize          int     `mapstructure:"hidden_size"`
	Dropout             float64 `mapstructure:"dropout"`
	TeacherForcingRatio float64 `mapstructure:"teacher_forcing_ratio"`
	Optimizer           string  `mapstructure:"optimizer"`
	LearningRate        float64 `mapstructure:"learning_rate"`
	NIters              int     `mapstructure:"n_iters"`
	PrintEvery          int     `mapstructure:"print_every"`
	PlotEvery           int     `mapstructure:"plot_every"`
	Seed                uint64  `mapstructure:"seed"` // 0 = time based

	// Stages
	SkipKGE       bool `mapstructure:"skip_kge"`
	SkipTranslate bool `mapstructure:"skip_translate"`
	Interactive   bool `mapstructure:"interactive"`

	// Knowledge graph
	Neo4jURI      string  `mapstructure:"neo4j_uri"`
	Neo4jUser     string  `mapstructure:"neo4j_user"`
	Neo4jPassword string  `mapstructure:"neo4j_password"`
	Neo4jDatabase string  `mapstructure:"neo4j_database"`
	TriplesPath   string  `mapstructure:"triples_path"` // TSV instead of Neo4j when set
	KGEDim        int     `mapstructure:"kge_dim"`
	KGEEpochs     int     `mapstructure:"kge_epochs"`
	KGELR         float64 `mapstructure:"kge_lr"`
	KGEMargin     float64 `mapstructure:"kge_margin"`
	KGETopK       int     `mapstructure:"kge_top_k"`

	// Output
	PlotDir          string   `mapstructure:"plot_dir"`
	LossPlot         string   `mapstructure:"loss_plot"`
	AttentionSamples []string `mapstructure:"attention_samples"`
	LogLevel         string   `mapstructure:"log_level"`
	LogFile          string   `mapstructure:"log_file"`
	MetricsAddr      string   `mapstructure:"metrics_addr"`
}

// Default mirrors the settings the translator was tuned with.
var Default = Config{
	CorpusPath:          "spavshort.txt",
	Lang1:               "eng",
	Lang2:               "spa",
	Reverse:             true,
	MaxLength:           10,
	HiddenSize:          256,
	Dropout:             0.1,
	TeacherForcingRatio: 1.0,
	Optimizer:           "sgd",
	LearningRate:        0.01,
	NIters:              2000,
	PrintEvery:          500,
	PlotEvery:           100,

	Interactive: true,

	Neo4jURI:      "bolt://localhost:7687",
	Neo4jUser:     "neo4j",
	Neo4jPassword: "password",
	KGEDim:        50,
	KGEEpochs:     10,
	KGELR:         0.01,
	KGEMargin:     1.0,
	KGETopK:       1,

	PlotDir: ".",
	AttentionSamples: []string{
		"lo sentimos .",
		"ella no esta aqui .",
		"estas a dieta .",
		"el es muy alto !",
	},
	LogLevel: "info",
}

// ErrHelp is returned after usage was printed for -h/--help.
var ErrHelp = pflag.ErrHelp

func setDefaults(v *viper.Viper) {
	d := Default
	v.SetDefault("corpus_path", d.CorpusPath)
	v.SetDefault("lang1", d.Lang1)
	v.SetDefault("lang2", d.Lang2)
	v.SetDefault("reverse", d.Reverse)
	v.SetDefault("max_length", d.MaxLength)
	v.SetDefault("hidden_size", d.HiddenSize)
	v.SetDefault("dropout", d.Dropout)
	v.SetDefault("teacher_forcing_ratio", d.TeacherForcingRatio)
	v.SetDefault("optimizer", d.Optimizer)
	v.SetDefault("learning_rate", d.LearningRate)
	v.SetDefault("n_iters", d.NIters)
	v.SetDefault("print_every", d.PrintEvery)
	v.SetDefault("plot_every", d.PlotEvery)
	v.SetDefault("seed", d.Seed)
	v.SetDefault("skip_kge", d.SkipKGE)
	v.SetDefault("skip_translate", d.SkipTranslate)
	v.SetDefault("interactive", d.Interactive)
	v.SetDefault("neo4j_uri", d.Neo4jURI)
	v.SetDefault("neo4j_user", d.Neo4jUser)
	v.SetDefault("neo4j_password", d.Neo4jPassword)
	v.SetDefault("neo4j_database", d.Neo4jDatabase)
	v.SetDefault("triples_path", d.TriplesPath)
	v.SetDefault("kge_dim", d.KGEDim)
	v.SetDefault("kge_epochs", d.KGEEpochs)
	v.SetDefault("kge_lr", d.KGELR)
	v.SetDefault("kge_margin", d.KGEMargin)
	v.SetDefault("kge_top_k", d.KGETopK)
	v.SetDefault("plot_dir", d.PlotDir)
	v.SetDefault("loss_plot", d.LossPlot)
	v.SetDefault("attention_samples", d.AttentionSamples)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("metrics_addr", d.MetricsAddr)
}

// flag name -> config key
var flagKeys = map[string]string{
	"corpus":           "corpus_path",
	"reverse":          "reverse",
	"max-length":       "max_length",
	"hidden":           "hidden_size",
	"dropout":          "dropout",
	"teacher-forcing":  "teacher_forcing_ratio",
	"optimizer":        "optimizer",
	"lr":               "learning_rate",
	"iters":            "n_iters",
	"print-every":      "print_every",
	"plot-every":       "plot_every",
	"seed":             "seed",
	"skip-kge":         "skip_kge",
	"skip-translate":   "skip_translate",
	"interactive":      "interactive",
	"neo4j-uri":        "neo4j_uri",
	"neo4j-user":       "neo4j_user",
	"neo4j-password":   "neo4j_password",
	"neo4j-database":   "neo4j_database",
	"triples":          "triples_path",
	"kge-dim":          "kge_dim",
	"kge-epochs":       "kge_epochs",
	"kge-lr":           "kge_lr",
	"kge-margin":       "kge_margin",
	"kge-top-k":        "kge_top_k",
	"plot-dir":         "plot_dir",
	"loss-plot":        "loss_plot",
	"attention-sample": "attention_samples",
	"log-level":        "log_level",
	"log-file":         "log_file",
	"metrics-addr":     "metrics_addr",
}

func newFlagSet() (*pflag.FlagSet, *string, *bool) {
	d := Default
	fs := pflag.NewFlagSet("translator", pflag.ContinueOnError)
	configFile := fs.StringP("config", "c", "", "Path to config file")
	fs.String("corpus", d.CorpusPath, "Tab separated sentence pairs")
	fs.Bool("reverse", d.Reverse, "Translate from the second column to the first")
	fs.Int("max-length", d.MaxLength, "Attention span; longer sentences are filtered out")
	fs.Int("hidden", d.HiddenSize, "GRU hidden size")
	fs.Float64("dropout", d.Dropout, "Decoder embedding dropout")
	fs.Float64("teacher-forcing", d.TeacherForcingRatio, "Teacher forcing ratio (0-1)")
	fs.String("optimizer", d.Optimizer, "sgd or adam")
	fs.Float64("lr", d.LearningRate, "Learning rate")
	fs.IntP("iters", "n", d.NIters, "Training iterations")
	fs.Int("print-every", d.PrintEvery, "Log progress every N iterations")
	fs.Int("plot-every", d.PlotEvery, "Record averaged loss every N iterations")
	fs.Uint64("seed", d.Seed, "Random seed (0 = time based)")
	fs.Bool("skip-kge", d.SkipKGE, "Skip the knowledge graph pipeline")
	fs.Bool("skip-translate", d.SkipTranslate, "Skip the translation pipeline")
	fs.BoolP("interactive", "i", d.Interactive, "Run the console loops")
	fs.String("neo4j-uri", d.Neo4jURI, "Neo4j bolt URI")
	fs.String("neo4j-user", d.Neo4jUser, "Neo4j user")
	fs.String("neo4j-password", d.Neo4jPassword, "Neo4j password")
	fs.String("neo4j-database", d.Neo4jDatabase, "Neo4j database (empty = server default)")
	fs.String("triples", d.TriplesPath, "Read head<TAB>relation<TAB>tail triples from a file instead of Neo4j")
	fs.Int("kge-dim", d.KGEDim, "TransE embedding size")
	fs.Int("kge-epochs", d.KGEEpochs, "TransE epochs")
	fs.Float64("kge-lr", d.KGELR, "TransE Adam learning rate")
	fs.Float64("kge-margin", d.KGEMargin, "TransE ranking margin")
	fs.Int("kge-top-k", d.KGETopK, "Neighbours printed per query")
	fs.String("plot-dir", d.PlotDir, "Directory for attention plots")
	fs.String("loss-plot", d.LossPlot, "Write the loss curve to this PNG")
	fs.StringSlice("attention-sample", d.AttentionSamples, "Sentence to plot attention for (repeatable)")
	fs.StringP("log-level", "l", d.LogLevel, "Log level (debug, info, warn, error)")
	fs.String("log-file", d.LogFile, "Also write JSON logs to this file")
	fs.String("metrics-addr", d.MetricsAddr, "Serve prometheus metrics on this address")
	help := fs.BoolP("help", "h", false, "Show help message")
	return fs, configFile, help
}

// LoadAndParse builds the config from defaults, an optional TOML file,
// TRANSLATOR_* environment variables and command line flags (in increasing
// priority). usage receives the flag help for -h.
func LoadAndParse(args []string, usage io.Writer) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	fs, configFile, help := newFlagSet()
	fs.SetOutput(usage)
	if err := fs.Parse(args); err != nil {
		return nil, errors.Wrap(err, "failed to parse flags")
	}
	if *help {
		fmt.Fprintf(usage, "Usage: translator [options]\n\nOptions:\n")
		fs.PrintDefaults()
		return nil, ErrHelp
	}

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, errors.Wrapf(err, "bind flag %s", name)
		}
	}

	if *configFile != "" {
		v.SetConfigFile(*configFile)
	} else {
		v.SetConfigName("translator.cfg")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "translator"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "failed to read config")
		}
	}

	v.SetEnvPrefix("TRANSLATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the trainers cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.MaxLength < 2:
		return errors.Errorf("max_length must be at least 2, got %d", c.MaxLength)
	case c.HiddenSize <= 0:
		return errors.Errorf("hidden_size must be positive, got %d", c.HiddenSize)
	case c.Dropout < 0 || c.Dropout >= 1:
		return errors.Errorf("dropout must be in [0, 1), got %g", c.Dropout)
	case c.TeacherForcingRatio < 0 || c.TeacherForcingRatio > 1:
		return errors.Errorf("teacher_forcing_ratio must be in [0, 1], got %g", c.TeacherForcingRatio)
	case c.LearningRate <= 0:
		return errors.Errorf("learning_rate must be positive, got %g", c.LearningRate)
	case c.NIters < 0:
		return errors.Errorf("n_iters must not be negative, got %d", c.NIters)
	case c.PrintEvery <= 0 || c.PlotEvery <= 0:
		return errors.New("print_every and plot_every must be positive")
	case c.KGEDim <= 0 || c.KGEEpochs < 0 || c.KGETopK <= 0:
		return errors.New("kge_dim and kge_top_k must be positive, kge_epochs not negative")
	case c.KGELR <= 0:
		return errors.Errorf("kge_lr must be positive, got %g", c.KGELR)
	}
	switch strings.ToLower(c.Optimizer) {
	case "sgd", "adam":
	default:
		return errors.Errorf("unknown optimizer %q", c.Optimizer)
	}
	return nil
}
