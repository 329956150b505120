package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"questionnaire_template_editor/config"
	"questionnaire_template_editor/generator"
	"questionnaire_template_editor/logger"
	"questionnaire_template_editor/server"
)

var (
	configPath string
	verbose    bool
	useMock    bool
)

var rootCmd = &cobra.Command{
	Use:           "editor",
	Short:         "Tax questionnaire template editor backed by the Perplexity Sonar API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, agent, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()

		srv, err := server.New(agent, log)
		if err != nil {
			return err
		}
		listen := cfg.ServerAddr
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			listen = addr
		}

		httpSrv := &http.Server{Addr: listen, Handler: srv.Routes(), ReadHeaderTimeout: 10 * time.Second}
		errCh := make(chan error, 1)
		go func() {
			log.Info("starting web server", "addr", listen, "provider", cfg.LLM.Provider)
			errCh <- httpSrv.ListenAndServe()
		}()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-sig:
			log.Info("shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return httpSrv.Shutdown(ctx)
		}
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a questionnaire template for a filing type and print it as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, log, agent, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()

		templateType, _ := cmd.Flags().GetString("type")
		description, _ := cmd.Flags().GetString("description")
		res, err := agent.GenerateTemplate(cmd.Context(), generator.GenerationRequest{
			TemplateType: templateType,
			Description:  description,
		})
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var assistCmd = &cobra.Command{
	Use:   "assist",
	Short: "Run one AI assistant action on a section",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, log, agent, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()

		action, _ := cmd.Flags().GetString("action")
		section, _ := cmd.Flags().GetString("section")
		input, _ := cmd.Flags().GetString("input")
		res, err := agent.Assist(cmd.Context(), generator.AssistRequest{
			ActionType:  generator.ActionType(action),
			SectionName: section,
			UserInput:   input,
		})
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.json", "path to config file (.json or .yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logs")
	rootCmd.PersistentFlags().BoolVar(&useMock, "mock", false, "use the offline mock model instead of the API")

	serveCmd.Flags().String("addr", "", "http listen address (overrides config server_addr)")

	generateCmd.Flags().String("type", "", "tax filing type, e.g. \"1120-S S-Corporation\"")
	generateCmd.Flags().String("description", "", "optional free-text description")
	_ = generateCmd.MarkFlagRequired("type")

	assistCmd.Flags().String("action", "", "add-questions | improve | suggest | tax-law-check")
	assistCmd.Flags().String("section", "", "section name")
	assistCmd.Flags().String("input", "", "free-form question when no action is given")

	rootCmd.AddCommand(serveCmd, generateCmd, assistCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func bootstrap() (config.Config, *logger.Logger, *generator.Agent, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	if useMock {
		cfg.LLM.Provider = config.ProviderMock
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, nil, err
	}
	log, err := logger.New(cfg.LogMode, verbose)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	llm, err := buildLLM(cfg)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	agent, err := generator.NewAgent(llm, log)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	return cfg, log, agent, nil
}

func buildLLM(cfg config.Config) (generator.LLMClient, error) {
	switch cfg.LLM.Provider {
	case config.ProviderMock:
		return generator.MockLLM{}, nil
	case config.ProviderPerplexity:
		return generator.NewOpenAILLMFromConfig(&generator.LLMSettings{
			Provider: cfg.LLM.Provider,
			APIKey:   cfg.LLM.APIKey,
			BaseURL:  cfg.LLM.BaseURL,
			Timeout:  cfg.LLM.Timeout(),
		})
	default:
		return nil, fmt.Errorf("llm provider %s not supported", cfg.LLM.Provider)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
