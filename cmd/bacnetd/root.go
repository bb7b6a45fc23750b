// Copyright 2025 Edgeo SCADA
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/edgeo/bacnet-server/bacnet"
)

var (
	cfgFile string

	deviceInstance uint32
	deviceName     string
	localAddress   string
	broadcastAddr  string
	bacnetPort     uint16
	vendorName     string
	vendorID       uint32
	modelName      string
	metricsAddr    string
	verbose        bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "bacnetd",
	Short: "A BACnet/IP application-layer server",
	Long: `bacnetd runs one BACnet/IP device on the network: it serves
ReadProperty/WriteProperty against a configurable object tree and records
remote devices from the I-Am messages it hears. It does not answer Who-Is.

Examples:
  # Run a device with instance 1234 on the default port
  bacnetd serve --device 1234 --name "Edgeo AHU-1"

  # List the object identifiers of a device built from these flags
  bacnetd objects list --device 1234`,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		}
		l, err := cfg.Build()
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.bacnetd.yaml)")
	rootCmd.PersistentFlags().Uint32VarP(&deviceInstance, "device", "d", 260001, "local device instance number")
	rootCmd.PersistentFlags().StringVarP(&deviceName, "name", "n", "bacnetd", "local device object name")
	rootCmd.PersistentFlags().StringVar(&localAddress, "local", ":47808", "local address to bind to")
	rootCmd.PersistentFlags().StringVar(&broadcastAddr, "broadcast", "", "directed broadcast address for Who-Is fan-out (empty = limited broadcast)")
	rootCmd.PersistentFlags().Uint16Var(&bacnetPort, "port", bacnet.BacnetPort, "BACnet/IP UDP port")
	rootCmd.PersistentFlags().StringVar(&vendorName, "vendor-name", "Edgeo SCADA", "Device VendorName property")
	rootCmd.PersistentFlags().Uint32Var(&vendorID, "vendor-id", 0, "Device VendorIdentifier property")
	rootCmd.PersistentFlags().StringVar(&modelName, "model-name", "bacnetd", "Device ModelName property")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics", "", "address to serve Prometheus metrics on (empty disables)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	viper.BindPFlag("device", rootCmd.PersistentFlags().Lookup("device"))
	viper.BindPFlag("name", rootCmd.PersistentFlags().Lookup("name"))
	viper.BindPFlag("local", rootCmd.PersistentFlags().Lookup("local"))
	viper.BindPFlag("broadcast", rootCmd.PersistentFlags().Lookup("broadcast"))
	viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("vendor-name", rootCmd.PersistentFlags().Lookup("vendor-name"))
	viper.BindPFlag("vendor-id", rootCmd.PersistentFlags().Lookup("vendor-id"))
	viper.BindPFlag("model-name", rootCmd.PersistentFlags().Lookup("model-name"))
	viper.BindPFlag("metrics", rootCmd.PersistentFlags().Lookup("metrics"))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(objectsCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".bacnetd")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("BACNETD")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}

// createServer builds a Server from the current flag values and registers
// it in the process-wide registry. Values that viper loads from the config
// file or the environment are not read here.
func createServer() (*bacnet.Server, error) {
	link := bacnet.NewUDPLink(localAddress, broadcastAddr, logger)
	return bacnet.CreateServer(link,
		bacnet.WithDeviceInstance(deviceInstance),
		bacnet.WithDeviceName(deviceName),
		bacnet.WithVendorInfo(vendorName, vendorID, modelName, "", ""),
		bacnet.WithServerLogger(logger),
		bacnet.WithBroadcastAddress(broadcastAddr),
	)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("bacnetd version 1.0.0")
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
