package main

import (
	"os"

	"github.com/nodecrypt/nodecrypt/lib/config"
	"github.com/nodecrypt/nodecrypt/lib/util/logger"
	"github.com/spf13/cobra"
)

var log = logger.GetNodeCryptLogger()

var rootCmd = &cobra.Command{
	Use:   "nodecrypt",
	Short: "End-to-end encrypted group chat over a blind relay",
	Long: `NodeCrypt is a zero-knowledge chat system. The relay authenticates the
transport layer, forwards opaque ciphertext between channel members and never
holds material that would decrypt the chat.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(config.InitConfig)
	rootCmd.PersistentFlags().StringVar(&config.CfgFile, "config", "",
		"config file (default $HOME/.nodecrypt/config.yaml)")
}
