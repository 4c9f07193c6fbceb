// Package template turns container inspection records into dockerMan
// container templates.
package template

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/docker/go-connections/nat"
)

// Placeholder values written into every template
const (
	DefaultDescription = "Description of the container functionality goes here."
	DefaultVersion     = "latest"
	DefaultBanner      = "http://example.com/path/to/banner.png"
	DefaultIcon        = "http://example.com/path/to/icon.png"
	NetworkMode        = "bridge"
	VolumeMode         = "rw"
	RegistryBase       = "https://registry.hub.docker.com/u/"
	WebUIFallback      = "http://[IP]:[PORT]/"
)

// Reasons reported for skipped environment entries
const (
	ReasonNoEquals  = "no '=' found in environment variable entry"
	ReasonMalformed = "skipping malformed environment variable entry"
)

// Parse decodes the list-wrapped inspection output and returns its first record.
// The record must carry both a Name and a Config.
func Parse(data []byte) (*Record, error) {
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode inspection record: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("inspection record list is empty")
	}
	for _, key := range []string{"Name", "Config"} {
		if _, ok := raw[0][key]; !ok {
			return nil, fmt.Errorf("inspection record is missing %q", key)
		}
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode inspection record: %w", err)
	}
	return &records[0], nil
}

// ValidateInput reports whether data is a usable inspection record
func ValidateInput(data []byte) bool {
	_, err := Parse(data)
	return err == nil
}

// ValidateInputFile is ValidateInput for a file on disk
func ValidateInputFile(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return ValidateInput(data)
}

// Convert maps one inspection record to a template. It only depends on rec
// and the fixed defaults; skipped environment entries are returned as warnings.
func Convert(rec *Record) (*Container, []Warning) {
	var warnings []Warning

	c := &Container{
		Name:        strings.TrimLeft(rec.Name, "/"),
		Description: DefaultDescription,
		Registry:    RegistryURL(rec.Config.Image),
		Repository:  rec.Config.Image,
		BindTime:    true,
		Privileged:  false,
		Networking:  Networking{Mode: NetworkMode},
		Version:     DefaultVersion,
		WebUI:       WebUIFallback,
		Banner:      DefaultBanner,
		Icon:        DefaultIcon,
	}

	var lastPort string
	for _, pb := range rec.HostConfig.PortBindings {
		proto, port := nat.SplitProtoPort(pb.Port)
		for _, b := range pb.Bindings {
			c.Networking.Publish.Ports = append(c.Networking.Publish.Ports, Port{
				HostPort:      b.HostPort,
				ContainerPort: port,
				Protocol:      proto,
			})
			lastPort = port
		}
	}
	if lastPort != "" {
		c.WebUI = fmt.Sprintf("http://[IP]:[PORT:%s]/", lastPort)
	}

	for _, m := range rec.Mounts {
		if m.Type != "bind" {
			continue
		}
		c.Data.Volumes = append(c.Data.Volumes, Volume{
			HostDir:      m.Source,
			ContainerDir: m.Destination,
			Mode:         VolumeMode,
		})
	}

	for _, env := range rec.Config.Env {
		parts := strings.Split(env, "=")
		switch {
		case len(parts) == 1:
			warnings = append(warnings, Warning{Entry: env, Reason: ReasonNoEquals})
		case len(parts) > 2:
			warnings = append(warnings, Warning{Entry: env, Reason: ReasonMalformed})
		default:
			c.Environment.Variables = append(c.Environment.Variables, Variable{
				Name:  parts[0],
				Value: parts[1],
			})
		}
	}

	return c, warnings
}

// RegistryURL derives the Docker Hub page from the namespace segment of an
// image reference. A reference without a "/" is a library image and its
// whole name is used.
func RegistryURL(image string) string {
	if image == "" {
		return ""
	}
	segment := image
	if parts := strings.Split(image, "/"); len(parts) > 1 {
		segment = parts[1]
	}
	return RegistryBase + segment + "/"
}

// Encode renders the template with an XML declaration on the first line
func Encode(c *Container) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("failed to encode template: %w", err)
	}
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

// ConvertBytes parses, converts and encodes in one step
func ConvertBytes(data []byte) ([]byte, []Warning, error) {
	rec, err := Parse(data)
	if err != nil {
		return nil, nil, err
	}
	c, warnings := Convert(rec)
	out, err := Encode(c)
	if err != nil {
		return nil, warnings, err
	}
	return out, warnings, nil
}

// ValidateOutput reports whether the file at path is well-formed XML with a
// single root element. Fields are not checked.
func ValidateOutput(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	return wellFormed(f)
}

func wellFormed(r io.Reader) bool {
	dec := xml.NewDecoder(r)
	depth, roots := 0, 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return roots == 1 && depth == 0
		}
		if err != nil {
			return false
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				roots++
			}
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth == 0 && len(bytes.TrimSpace(t)) > 0 {
				return false
			}
		}
	}
}
