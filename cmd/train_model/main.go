package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tripcost/db"
	"tripcost/logging"
	"tripcost/ml"
)

type trainOptions struct {
	modelPath string
	samples   int
	seed      int64
	testRatio float64
	datasetDB string
	fromDB    string
	logLevel  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &trainOptions{}
	cmd := &cobra.Command{
		Use:   "train_model",
		Short: "Fit the trip cost regression and write the model artifact",
		Long: "Fits an ordinary least squares model on trip distance, vehicle type, tolls and fuel\n" +
			"consumption. Trains on a seeded synthetic dataset unless --from-db points at recorded trips.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.New(logging.Config{Level: opts.logLevel})
			if err != nil {
				return err
			}
			defer logger.Sync()
			return run(opts, logger)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.modelPath, "model-path", "ml/cost_model.json", "artifact output path")
	flags.IntVar(&opts.samples, "samples", 500, "number of synthetic trips")
	flags.Int64Var(&opts.seed, "seed", 42, "random seed for the synthetic dataset")
	flags.Float64Var(&opts.testRatio, "test-ratio", 0.2, "share of trips held out for evaluation")
	flags.StringVar(&opts.datasetDB, "dataset-db", "", "SQLite file to export the generated trips to")
	flags.StringVar(&opts.fromDB, "from-db", "", "SQLite file with recorded trips to train on")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level")
	cmd.MarkFlagsMutuallyExclusive("dataset-db", "from-db")
	return cmd
}

func run(opts *trainOptions, logger *zap.Logger) error {
	samples, err := loadSamples(opts, logger)
	if err != nil {
		return err
	}

	train, test := ml.SplitDataset(samples, opts.testRatio)
	trainX, trainY := ml.TrainingMatrix(train)
	model := &ml.LinearRegression{}
	if err := model.Train(trainX, trainY); err != nil {
		return fmt.Errorf("train model: %w", err)
	}

	var r2, mae float64
	if len(test) > 0 {
		testX, testY := ml.TrainingMatrix(test)
		r2, mae, err = ml.EvaluateRegression(model, testX, testY)
		if err != nil {
			return fmt.Errorf("evaluate model: %w", err)
		}
	}
	logger.Info("model trained",
		zap.Int("train_samples", len(train)),
		zap.Int("test_samples", len(test)),
		zap.Float64("r2", r2),
		zap.Float64("mae", mae),
		zap.Float64("intercept", model.Intercept),
		zap.Float64s("coefficients", model.Coefficients),
	)

	if err := ml.SaveArtifact(opts.modelPath, model, ml.FeatureNames()); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	if err := recordTraining(opts, r2, mae, len(samples)); err != nil {
		logger.Warn("training log not written", zap.Error(err))
	}

	fmt.Printf("model saved to %s\n", opts.modelPath)
	return nil
}

func loadSamples(opts *trainOptions, logger *zap.Logger) ([]ml.TripSample, error) {
	if opts.fromDB != "" {
		store, err := db.Open(opts.fromDB)
		if err != nil {
			return nil, err
		}
		defer store.Close()

		samples, err := store.LoadTrips(0)
		if err != nil {
			return nil, err
		}
		if len(samples) < len(ml.FeatureNames())+1 {
			return nil, errors.New("not enough recorded trips to fit the model")
		}
		logger.Info("loaded recorded trips", zap.String("db", opts.fromDB), zap.Int("count", len(samples)))
		return samples, nil
	}

	samples, err := ml.GenerateDataset(opts.samples, opts.seed)
	if err != nil {
		return nil, err
	}
	if opts.datasetDB != "" {
		store, err := db.Open(opts.datasetDB)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		if err := store.SaveTrips(samples); err != nil {
			return nil, fmt.Errorf("export dataset: %w", err)
		}
		logger.Info("exported synthetic trips", zap.String("db", opts.datasetDB), zap.Int("count", len(samples)))
	}
	return samples, nil
}

func recordTraining(opts *trainOptions, r2, mae float64, points int) error {
	path := opts.fromDB
	if path == "" {
		path = opts.datasetDB
	}
	if path == "" {
		return nil
	}
	store, err := db.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.SaveTrainingLog(db.TrainingLog{
		ModelPath:  opts.modelPath,
		R2:         r2,
		MAE:        mae,
		DataPoints: points,
	})
}
