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
	"strconv"

	"github.com/spf13/cobra"

	"github.com/edgeo/bacnet-server/bacnet"
)

var objectsCmd = &cobra.Command{
	Use:   "objects",
	Short: "Manage the local device's object tree",
}

var addObjectCmd = &cobra.Command{
	Use:   "add <object-type> <instance> <name>",
	Short: "Add an object to the local device",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		objType, err := parseObjectType(args[0])
		if err != nil {
			return err
		}
		instance, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid instance %q: %w", args[1], err)
		}

		srv, err := createServer()
		if err != nil {
			return err
		}
		defer bacnet.DeleteServer(srv.Instance())

		oid, err := srv.AddObject(objType, uint32(instance), args[2])
		if err != nil {
			return err
		}
		fmt.Printf("added %s\n", oid)
		return nil
	},
}

var listObjectsCmd = &cobra.Command{
	Use:   "list",
	Short: "List the object identifiers configured on the local device",
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := createServer()
		if err != nil {
			return err
		}
		defer bacnet.DeleteServer(srv.Instance())

		devOID := bacnet.NewObjectIdentifier(bacnet.ObjectTypeDevice, srv.Instance())
		fmt.Println(devOID)
		return nil
	},
}

var getPropertyCmd = &cobra.Command{
	Use:   "get <object-type> <instance> <property>",
	Short: "Read a property of an object on the local device",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		objType, err := parseObjectType(args[0])
		if err != nil {
			return err
		}
		instance, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid instance %q: %w", args[1], err)
		}
		pid, err := parsePropertyIdentifier(args[2])
		if err != nil {
			return err
		}

		srv, err := createServer()
		if err != nil {
			return err
		}
		defer bacnet.DeleteServer(srv.Instance())

		oid := bacnet.NewObjectIdentifier(objType, uint32(instance))
		value, err := srv.ReadLocalProperty(oid, pid)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s = %v\n", oid, pid, value)
		return nil
	},
}

func init() {
	objectsCmd.AddCommand(addObjectCmd)
	objectsCmd.AddCommand(listObjectsCmd)
	objectsCmd.AddCommand(getPropertyCmd)
}

func parseObjectType(s string) (bacnet.ObjectType, error) {
	t, ok := bacnet.ParseObjectType(s)
	if !ok {
		return 0, fmt.Errorf("unknown object type %q", s)
	}
	return t, nil
}

func parsePropertyIdentifier(s string) (bacnet.PropertyIdentifier, error) {
	p, ok := bacnet.ParsePropertyIdentifier(s)
	if !ok {
		return 0, fmt.Errorf("unknown property %q", s)
	}
	return p, nil
}
