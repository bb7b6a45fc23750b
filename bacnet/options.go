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

package bacnet

import (
	"time"

	"go.uber.org/zap"
)

// ServerConfig holds every option recognized at Server creation (spec.md 6).
type ServerConfig struct {
	DeviceInstance uint32
	DeviceName     string
	SystemStatus   DeviceStatus

	VendorName   string
	VendorID     uint32
	ModelName    string
	FirmwareRev  string
	SoftwareVer  string
	Location     string
	Description  string

	ApduTimeout      time.Duration
	ApduRetries      int
	DatabaseRevision uint32

	BbmdIP  string
	BbmdTTL time.Duration

	Address           DeviceAddress
	BroadcastAddress  string
	ProcessRateMs     time.Duration

	Logger *zap.Logger
}

func defaultServerConfig() *ServerConfig {
	return &ServerConfig{
		SystemStatus:  DeviceStatusOperational,
		ApduTimeout:   3 * time.Second,
		ApduRetries:   2,
		ProcessRateMs: 5 * time.Millisecond,
		Logger:        zap.NewNop(),
	}
}

// ServerOption is a functional option for configuring a Server.
type ServerOption func(*ServerConfig)

// WithDeviceInstance sets the instance of the mandatory Device object.
func WithDeviceInstance(instance uint32) ServerOption {
	return func(c *ServerConfig) { c.DeviceInstance = instance }
}

// WithDeviceName sets the Name property of the Device object.
func WithDeviceName(name string) ServerOption {
	return func(c *ServerConfig) { c.DeviceName = name }
}

// WithSystemStatus sets the Device's initial SystemStatus.
func WithSystemStatus(status DeviceStatus) ServerOption {
	return func(c *ServerConfig) { c.SystemStatus = status }
}

// WithVendorInfo sets the Device's vendor/model/firmware/software identity.
func WithVendorInfo(vendorName string, vendorID uint32, modelName, firmwareRev, softwareVer string) ServerOption {
	return func(c *ServerConfig) {
		c.VendorName = vendorName
		c.VendorID = vendorID
		c.ModelName = modelName
		c.FirmwareRev = firmwareRev
		c.SoftwareVer = softwareVer
	}
}

// WithLocation sets the Device's Location property.
func WithLocation(location string) ServerOption {
	return func(c *ServerConfig) { c.Location = location }
}

// WithDescription sets the Device's Description property.
func WithDescription(description string) ServerOption {
	return func(c *ServerConfig) { c.Description = description }
}

// WithApduTimeout sets the Device object's ApduTimeout property (stored in
// milliseconds).
func WithApduTimeout(d time.Duration) ServerOption {
	return func(c *ServerConfig) { c.ApduTimeout = d }
}

// WithApduRetries sets the Device object's NumberOfApduRetries property.
func WithApduRetries(n int) ServerOption {
	return func(c *ServerConfig) { c.ApduRetries = n }
}

// WithDatabaseRevision sets the Device's DatabaseRevision property.
func WithDatabaseRevision(rev uint32) ServerOption {
	return func(c *ServerConfig) { c.DatabaseRevision = rev }
}

// WithServerBBMD records the BACnet broadcast-distribution parameters in
// ServerConfig. The Server does not pass them to the Link.
func WithServerBBMD(ip string, ttl time.Duration) ServerOption {
	return func(c *ServerConfig) {
		c.BbmdIP = ip
		c.BbmdTTL = ttl
	}
}

// WithServerAddress sets the device's source address (and optional router).
func WithServerAddress(addr DeviceAddress) ServerOption {
	return func(c *ServerConfig) { c.Address = addr }
}

// WithBroadcastAddress records an IPv4 broadcast address in ServerConfig.
// The Server does not pass it to the Link; UDPLink sends Who-Is to the
// broadcast address given to NewUDPLink.
func WithBroadcastAddress(addr string) ServerOption {
	return func(c *ServerConfig) { c.BroadcastAddress = addr }
}

// WithProcessRate sets the worker tick period.
func WithProcessRate(d time.Duration) ServerOption {
	return func(c *ServerConfig) { c.ProcessRateMs = d }
}

// WithServerLogger sets the structured logger used by the Server.
func WithServerLogger(logger *zap.Logger) ServerOption {
	return func(c *ServerConfig) { c.Logger = logger }
}
