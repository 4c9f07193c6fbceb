package template

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioRecord = `[{"Name":"/foo","Config":{"Image":"library/nginx","Env":["X=1"]},"HostConfig":{"PortBindings":{"80/tcp":[{"HostPort":"8080"}]}},"Mounts":[{"Type":"bind","Source":"/data","Destination":"/var/data"}]}]`

func mustParse(t *testing.T, data string) *Record {
	t.Helper()
	rec, err := Parse([]byte(data))
	require.NoError(t, err)
	return rec
}

func TestConvert_Scenario(t *testing.T) {
	c, warnings := Convert(mustParse(t, scenarioRecord))

	assert.Empty(t, warnings)
	assert.Equal(t, "foo", c.Name)
	assert.Equal(t, DefaultDescription, c.Description)
	assert.Equal(t, "library/nginx", c.Repository)
	assert.Equal(t, "https://registry.hub.docker.com/u/nginx/", c.Registry)
	assert.True(t, c.BindTime)
	assert.False(t, c.Privileged)
	assert.Equal(t, "bridge", c.Networking.Mode)
	assert.Equal(t, []Port{{HostPort: "8080", ContainerPort: "80", Protocol: "tcp"}}, c.Networking.Publish.Ports)
	assert.Equal(t, []Volume{{HostDir: "/data", ContainerDir: "/var/data", Mode: "rw"}}, c.Data.Volumes)
	assert.Equal(t, []Variable{{Name: "X", Value: "1"}}, c.Environment.Variables)
	assert.Equal(t, "latest", c.Version)
	assert.Equal(t, "http://[IP]:[PORT:80]/", c.WebUI)
	assert.Equal(t, DefaultBanner, c.Banner)
	assert.Equal(t, DefaultIcon, c.Icon)
	assert.Empty(t, c.ExtraParams)
}

func TestEncode_Scenario(t *testing.T) {
	out, warnings, err := ConvertBytes([]byte(scenarioRecord))
	require.NoError(t, err)
	assert.Empty(t, warnings)

	lines := strings.SplitN(string(out), "\n", 2)
	assert.Equal(t, `<?xml version="1.0" encoding="UTF-8"?>`, lines[0])

	expected := []string{
		"<Container>",
		"  <Name>foo</Name>",
		"  <Registry>https://registry.hub.docker.com/u/nginx/</Registry>",
		"  <Repository>library/nginx</Repository>",
		"  <BindTime>true</BindTime>",
		"  <Privileged>false</Privileged>",
		"      <Port>",
		"        <HostPort>8080</HostPort>",
		"        <ContainerPort>80</ContainerPort>",
		"        <Protocol>tcp</Protocol>",
		"      <HostDir>/data</HostDir>",
		"      <ContainerDir>/var/data</ContainerDir>",
		"      <Mode>rw</Mode>",
		"      <Name>X</Name>",
		"      <Value>1</Value>",
		"  <Version>latest</Version>",
		"  <WebUI>http://[IP]:[PORT:80]/</WebUI>",
		"  <ExtraParams></ExtraParams>",
		"</Container>",
	}
	for _, fragment := range expected {
		assert.Contains(t, string(out), fragment)
	}
}

func TestEncode_ChildOrder(t *testing.T) {
	out, _, err := ConvertBytes([]byte(scenarioRecord))
	require.NoError(t, err)

	dec := xml.NewDecoder(strings.NewReader(string(out)))
	var children []string
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 1 {
				children = append(children, t.Name.Local)
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}

	assert.Equal(t, []string{
		"Name", "Description", "Registry", "Repository", "BindTime", "Privileged",
		"Networking", "Data", "Environment", "Version", "WebUI", "Banner", "Icon", "ExtraParams",
	}, children)
}

func TestConvert_Deterministic(t *testing.T) {
	record := `[{"Name":"/multi","Config":{"Image":"linuxserver/plex","Env":["A=1","B=2"]},
		"HostConfig":{"PortBindings":{"9000/tcp":[{"HostPort":"9000"}],"32400/tcp":[{"HostPort":"32400"}],"1900/udp":[{"HostPort":"1900"}]}},
		"Mounts":[{"Type":"bind","Source":"/mnt/user/appdata/plex","Destination":"/config"}]}]`

	first, _, err := ConvertBytes([]byte(record))
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, _, err := ConvertBytes([]byte(record))
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestConvert_PortsKeepRecordOrder(t *testing.T) {
	rec := mustParse(t, `[{"Name":"/p","Config":{"Image":"a/b"},"HostConfig":{"PortBindings":{
		"9000/tcp":[{"HostPort":"19000"}],
		"443/tcp":[{"HostPort":"8443"}]}}}]`)

	c, _ := Convert(rec)

	require.Len(t, c.Networking.Publish.Ports, 2)
	assert.Equal(t, "9000", c.Networking.Publish.Ports[0].ContainerPort)
	assert.Equal(t, "443", c.Networking.Publish.Ports[1].ContainerPort)
	// the last binding processed wins
	assert.Equal(t, "http://[IP]:[PORT:443]/", c.WebUI)
}

func TestConvert_MultipleHostBindings(t *testing.T) {
	rec := mustParse(t, `[{"Name":"/p","Config":{"Image":"a/b"},"HostConfig":{"PortBindings":{
		"53/udp":[{"HostIp":"0.0.0.0","HostPort":"53"},{"HostIp":"::","HostPort":"5353"}]}}}]`)

	c, _ := Convert(rec)

	assert.Equal(t, []Port{
		{HostPort: "53", ContainerPort: "53", Protocol: "udp"},
		{HostPort: "5353", ContainerPort: "53", Protocol: "udp"},
	}, c.Networking.Publish.Ports)
	assert.Equal(t, "http://[IP]:[PORT:53]/", c.WebUI)
}

func TestConvert_NoPorts(t *testing.T) {
	rec := mustParse(t, `[{"Name":"/p","Config":{"Image":"a/b"},"HostConfig":{"PortBindings":{}}}]`)
	c, _ := Convert(rec)
	assert.Empty(t, c.Networking.Publish.Ports)
	assert.Equal(t, WebUIFallback, c.WebUI)

	// an exposed port with no host binding publishes nothing
	rec = mustParse(t, `[{"Name":"/p","Config":{"Image":"a/b"},"HostConfig":{"PortBindings":{"80/tcp":[]}}}]`)
	c, _ = Convert(rec)
	assert.Empty(t, c.Networking.Publish.Ports)
	assert.Equal(t, WebUIFallback, c.WebUI)

	rec = mustParse(t, `[{"Name":"/p","Config":{"Image":"a/b"},"HostConfig":{"PortBindings":null}}]`)
	c, _ = Convert(rec)
	assert.Empty(t, c.Networking.Publish.Ports)
}

func TestConvert_PortWithoutProtocol(t *testing.T) {
	rec := mustParse(t, `[{"Name":"/p","Config":{"Image":"a/b"},"HostConfig":{"PortBindings":{"8080":[{"HostPort":"80"}]}}}]`)
	c, _ := Convert(rec)
	assert.Equal(t, []Port{{HostPort: "80", ContainerPort: "8080", Protocol: "tcp"}}, c.Networking.Publish.Ports)
}

func TestConvert_OnlyBindMounts(t *testing.T) {
	rec := mustParse(t, `[{"Name":"/m","Config":{"Image":"a/b"},"Mounts":[
		{"Type":"bind","Source":"/mnt/a","Destination":"/a"},
		{"Type":"volume","Source":"/var/lib/docker/volumes/x/_data","Destination":"/x"},
		{"Type":"tmpfs","Source":"","Destination":"/tmp"},
		{"Type":"bind","Source":"/mnt/b","Destination":"/b"}]}]`)

	c, warnings := Convert(rec)

	assert.Empty(t, warnings)
	assert.Equal(t, []Volume{
		{HostDir: "/mnt/a", ContainerDir: "/a", Mode: "rw"},
		{HostDir: "/mnt/b", ContainerDir: "/b", Mode: "rw"},
	}, c.Data.Volumes)
}

func TestConvert_Environment(t *testing.T) {
	rec := mustParse(t, `[{"Name":"/e","Config":{"Image":"a/b","Env":["A=1","B","C=2=3"]}}]`)

	c, warnings := Convert(rec)

	assert.Equal(t, []Variable{{Name: "A", Value: "1"}}, c.Environment.Variables)
	assert.Equal(t, []Warning{
		{Entry: "B", Reason: ReasonNoEquals},
		{Entry: "C=2=3", Reason: ReasonMalformed},
	}, warnings)
	assert.NotEqual(t, ReasonNoEquals, ReasonMalformed)
}

func TestConvert_EmptyEnvValue(t *testing.T) {
	rec := mustParse(t, `[{"Name":"/e","Config":{"Image":"a/b","Env":["EMPTY="]}}]`)
	c, warnings := Convert(rec)
	assert.Empty(t, warnings)
	assert.Equal(t, []Variable{{Name: "EMPTY", Value: ""}}, c.Environment.Variables)
}

func TestConvert_NameSlashes(t *testing.T) {
	c, _ := Convert(&Record{Name: "//double"})
	assert.Equal(t, "double", c.Name)

	c, _ = Convert(&Record{Name: "plain"})
	assert.Equal(t, "plain", c.Name)
}

func TestConvert_MissingSections(t *testing.T) {
	c, warnings := Convert(mustParse(t, `[{"Name":"/bare","Config":{"Image":"nginx"}}]`))

	assert.Empty(t, warnings)
	assert.Equal(t, "bare", c.Name)
	assert.Empty(t, c.Networking.Publish.Ports)
	assert.Empty(t, c.Data.Volumes)
	assert.Empty(t, c.Environment.Variables)
	assert.Equal(t, WebUIFallback, c.WebUI)
}

func TestRegistryURL(t *testing.T) {
	tests := []struct {
		image string
		want  string
	}{
		{"library/nginx", "https://registry.hub.docker.com/u/nginx/"},
		{"linuxserver/plex:latest", "https://registry.hub.docker.com/u/plex:latest/"},
		{"ghcr.io/linuxserver/sonarr", "https://registry.hub.docker.com/u/linuxserver/"},
		{"nginx", "https://registry.hub.docker.com/u/nginx/"},
		{"redis:7", "https://registry.hub.docker.com/u/redis:7/"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.image, func(t *testing.T) {
			assert.Equal(t, tt.want, RegistryURL(tt.image))
		})
	}
}

func TestValidateInput(t *testing.T) {
	tests := []struct {
		name string
		data string
		want bool
	}{
		{"scenario", scenarioRecord, true},
		{"minimal", `[{"Name":"/a","Config":{}}]`, true},
		{"empty input", ``, false},
		{"whitespace", "  \n", false},
		{"not a list", `{"Name":"/a","Config":{}}`, false},
		{"empty list", `[]`, false},
		{"null", `null`, false},
		{"missing Config", `[{"Name":"/a"}]`, false},
		{"missing Name", `[{"Config":{}}]`, false},
		{"element not object", `["Name","Config"]`, false},
		{"truncated", `[{"Name":"/a","Config":{}`, false},
		{"wrong Config shape", `[{"Name":"/a","Config":"nope"}]`, false},
		{"wrong PortBindings shape", `[{"Name":"/a","Config":{},"HostConfig":{"PortBindings":[1]}}]`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateInput([]byte(tt.data)))
		})
	}
}

func TestValidateInputFile(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(scenarioRecord), 0644))
	assert.True(t, ValidateInputFile(good))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{}`), 0644))
	assert.False(t, ValidateInputFile(bad))

	assert.False(t, ValidateInputFile(filepath.Join(dir, "missing.json")))
}

func TestValidateOutput(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		return path
	}

	assert.True(t, ValidateOutput(write("ok.xml", `<?xml version="1.0" encoding="UTF-8"?>`+"\n<Container><Name>a</Name></Container>\n")))
	assert.True(t, ValidateOutput(write("nodecl.xml", `<Container/>`)))
	assert.False(t, ValidateOutput(write("empty.xml", ``)))
	assert.False(t, ValidateOutput(write("unclosed.xml", `<Container><Name>a</Container>`)))
	assert.False(t, ValidateOutput(write("tworoots.xml", `<a/><b/>`)))
	assert.False(t, ValidateOutput(write("text.xml", `just text`)))
	assert.False(t, ValidateOutput(filepath.Join(dir, "missing.xml")))
}

func TestRoundTrip_ValidOutput(t *testing.T) {
	records := []string{
		scenarioRecord,
		`[{"Name":"/odd","Config":{"Image":"a/b","Env":["AMP=a&b<c>","QUOTE=\"x\"","CTRL=\u0001"]},"Mounts":[{"Type":"bind","Source":"/a b","Destination":"/c&d"}]}]`,
		`[{"Name":"/bare","Config":{"Image":"nginx"}}]`,
	}

	dir := t.TempDir()
	for i, record := range records {
		require.True(t, ValidateInput([]byte(record)))

		out, _, err := ConvertBytes([]byte(record))
		require.NoError(t, err)

		path := filepath.Join(dir, "out"+string(rune('a'+i))+".xml")
		require.NoError(t, os.WriteFile(path, out, 0644))
		assert.True(t, ValidateOutput(path), "record %d", i)
	}
}

func TestConvertBytes_Invalid(t *testing.T) {
	_, _, err := ConvertBytes([]byte(`[]`))
	assert.Error(t, err)
}
