package template

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
)

// Record is the part of a container inspection record the converter reads
type Record struct {
	Name       string       `json:"Name"`
	Config     RecordConfig `json:"Config"`
	HostConfig HostConfig   `json:"HostConfig"`
	Mounts     []Mount      `json:"Mounts"`
}

// RecordConfig holds the image reference and the KEY=VALUE environment
type RecordConfig struct {
	Image string   `json:"Image"`
	Env   []string `json:"Env"`
}

// HostConfig holds the published ports
type HostConfig struct {
	PortBindings PortBindings `json:"PortBindings"`
}

// Mount represents a container mount point
type Mount struct {
	Type        string `json:"Type"`
	Source      string `json:"Source"`
	Destination string `json:"Destination"`
}

// HostBinding is one host side of a published port
type HostBinding struct {
	HostIP   string `json:"HostIp"`
	HostPort string `json:"HostPort"`
}

// PortBinding maps a "<port>/<proto>" key to its host bindings
type PortBinding struct {
	Port     string
	Bindings []HostBinding
}

// PortBindings keeps the bindings in the order they appear in the record.
// A plain map would lose it, and the WebUI port depends on that order.
type PortBindings []PortBinding

func (p *PortBindings) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*p = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("port bindings: expected object, got %v", tok)
	}

	var out PortBindings
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("port bindings: unexpected key %v", tok)
		}
		var bindings []HostBinding
		if err := dec.Decode(&bindings); err != nil {
			return fmt.Errorf("port bindings %q: %w", key, err)
		}
		out = append(out, PortBinding{Port: key, Bindings: bindings})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*p = out
	return nil
}

// Container is the dockerMan template document
type Container struct {
	XMLName     xml.Name    `xml:"Container"`
	Name        string      `xml:"Name"`
	Description string      `xml:"Description"`
	Registry    string      `xml:"Registry"`
	Repository  string      `xml:"Repository"`
	BindTime    bool        `xml:"BindTime"`
	Privileged  bool        `xml:"Privileged"`
	Networking  Networking  `xml:"Networking"`
	Data        Data        `xml:"Data"`
	Environment Environment `xml:"Environment"`
	Version     string      `xml:"Version"`
	WebUI       string      `xml:"WebUI"`
	Banner      string      `xml:"Banner"`
	Icon        string      `xml:"Icon"`
	ExtraParams string      `xml:"ExtraParams"`
}

// Networking holds the network mode and published ports
type Networking struct {
	Mode    string  `xml:"Mode"`
	Publish Publish `xml:"Publish"`
}

type Publish struct {
	Ports []Port `xml:"Port"`
}

// Port is one host-to-container port publish entry
type Port struct {
	HostPort      string `xml:"HostPort"`
	ContainerPort string `xml:"ContainerPort"`
	Protocol      string `xml:"Protocol"`
}

type Data struct {
	Volumes []Volume `xml:"Volume"`
}

// Volume is one bind-mounted host directory
type Volume struct {
	HostDir      string `xml:"HostDir"`
	ContainerDir string `xml:"ContainerDir"`
	Mode         string `xml:"Mode"`
}

type Environment struct {
	Variables []Variable `xml:"Variable"`
}

type Variable struct {
	Name  string `xml:"Name"`
	Value string `xml:"Value"`
}

// Warning describes an input entry that was skipped during conversion
type Warning struct {
	Entry  string
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Reason, w.Entry)
}
