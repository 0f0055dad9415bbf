/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "claims-gin",
	Short: "Lecturer claims approval API server",
	Long: `Claims Gin is a REST API server for lecturer claim submission and approval.
It evaluates every submitted claim against an ordered rule set, auto-approves
small claims, flags unusual ones for coordinator review, and pushes status
updates to coordinators and lecturers in real time.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// GetRootCmd 返回根命令（用于测试）
func GetRootCmd() *cobra.Command {
	return rootCmd
}
