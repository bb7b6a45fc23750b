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

import "sync"

// MaxServersAllowed bounds how many Servers may exist in this process at
// once (spec.md 4.7). One process normally represents one BACnet device.
const MaxServersAllowed = 1

// Registry tracks live Servers by Device instance and enforces
// MaxServersAllowed.
type Registry struct {
	mu      sync.Mutex
	servers map[uint32]*Server
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{servers: make(map[uint32]*Server)}
}

// defaultRegistry is the process-wide registry used by CreateServer.
var defaultRegistry = NewRegistry()

// CreateServer builds a Server on link and registers it in the default
// registry, refusing creation past MaxServersAllowed.
func CreateServer(link Link, opts ...ServerOption) (*Server, error) {
	return defaultRegistry.CreateServer(link, opts...)
}

// GetServer returns the registered Server for a Device instance.
func GetServer(instance uint32) (*Server, bool) {
	return defaultRegistry.GetServer(instance)
}

// DeleteServer removes instance from the default registry.
func DeleteServer(instance uint32) bool {
	return defaultRegistry.DeleteServer(instance)
}

// CreateServer builds and registers a Server, refusing creation past
// MaxServersAllowed.
func (r *Registry) CreateServer(link Link, opts ...ServerOption) (*Server, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.servers) >= MaxServersAllowed {
		return nil, NewBACnetError(ErrorClassResources, ErrorCodeNoSpaceForObject)
	}
	srv, err := newServer(link, opts...)
	if err != nil {
		return nil, err
	}
	r.servers[srv.Instance()] = srv
	return srv, nil
}

// GetServer returns the registered Server for a Device instance.
func (r *Registry) GetServer(instance uint32) (*Server, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.servers[instance]
	return s, ok
}

// DeleteServer removes instance from the registry.
func (r *Registry) DeleteServer(instance uint32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.servers[instance]; !ok {
		return false
	}
	delete(r.servers, instance)
	return true
}

// Count returns the number of servers currently registered.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.servers)
}
