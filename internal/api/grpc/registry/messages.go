package registry

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/sam-phinizy/beer-hall/internal/domain/formula"
)

var errMissingName = errors.New("name is required")

// ResolveRequest asks for the artifact of one package on one target.
type ResolveRequest struct {
	Name    string
	Version string
	Target  formula.Target
}

// NewResolveRequest encodes a resolve request document.
func NewResolveRequest(req *ResolveRequest) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"name":    structpb.NewStringValue(req.Name),
			"version": structpb.NewStringValue(req.Version),
			"os":      structpb.NewStringValue(string(req.Target.OS)),
			"arch":    structpb.NewStringValue(string(req.Target.Arch)),
		},
	}
}

// ParseResolveRequest decodes a resolve request document.
func ParseResolveRequest(doc *structpb.Struct) (*ResolveRequest, error) {
	fields := doc.GetFields()

	req := &ResolveRequest{
		Name:    fields["name"].GetStringValue(),
		Version: fields["version"].GetStringValue(),
		Target: formula.Target{
			OS:   formula.OS(fields["os"].GetStringValue()),
			Arch: formula.Arch(fields["arch"].GetStringValue()),
		},
	}

	if req.Name == "" {
		return nil, errMissingName
	}

	return req, nil
}

// SelectionToStruct encodes a selection.
func SelectionToStruct(selection *formula.Selection) *structpb.Struct {
	fields := map[string]*structpb.Value{
		"package":       structpb.NewStringValue(selection.Package),
		"version":       structpb.NewStringValue(selection.Version),
		"os":            structpb.NewStringValue(string(selection.Target.OS)),
		"arch":          structpb.NewStringValue(string(selection.Target.Arch)),
		"url":           structpb.NewStringValue(selection.URL),
		"sha256":        structpb.NewStringValue(selection.Digest),
		"install_name":  structpb.NewStringValue(selection.InstallName),
		"compression":   structpb.NewStringValue(string(selection.Compression)),
		"signature_url": structpb.NewStringValue(selection.SignatureURL),
		"test":          structpb.NewStructValue(smokeTestToStruct(selection.Test)),
	}

	if selection.Launcher != nil {
		fields["launcher"] = structpb.NewStructValue(&structpb.Struct{
			Fields: map[string]*structpb.Value{
				"interpreter": stringList(selection.Launcher.Interpreter),
			},
		})
	}

	return &structpb.Struct{Fields: fields}
}

// SelectionFromStruct decodes a selection.
func SelectionFromStruct(doc *structpb.Struct) *formula.Selection {
	fields := doc.GetFields()
	str := func(key string) string { return fields[key].GetStringValue() }

	selection := &formula.Selection{
		Package: str("package"),
		Version: str("version"),
		Target: formula.Target{
			OS:   formula.OS(str("os")),
			Arch: formula.Arch(str("arch")),
		},
		URL:          str("url"),
		Digest:       str("sha256"),
		InstallName:  str("install_name"),
		Compression:  formula.Compression(str("compression")),
		SignatureURL: str("signature_url"),
		Test:         smokeTestFromStruct(fields["test"].GetStructValue()),
	}

	if launcher := fields["launcher"].GetStructValue(); launcher != nil {
		selection.Launcher = &formula.LauncherSpec{
			Interpreter: fromStringList(launcher.GetFields()["interpreter"]),
		}
	}

	return selection
}

// SummariesToStruct encodes a registry listing.
func SummariesToStruct(summaries []formula.Summary) *structpb.Struct {
	values := make([]*structpb.Value, 0, len(summaries))

	for _, summary := range summaries {
		platforms := make([]string, 0, len(summary.Platforms))
		for _, target := range summary.Platforms {
			platforms = append(platforms, target.String())
		}

		values = append(values, structpb.NewStructValue(&structpb.Struct{
			Fields: map[string]*structpb.Value{
				"name":        structpb.NewStringValue(summary.Name),
				"description": structpb.NewStringValue(summary.Description),
				"homepage":    structpb.NewStringValue(summary.Homepage),
				"latest":      structpb.NewStringValue(summary.Latest),
				"versions":    stringList(summary.Versions),
				"platforms":   stringList(platforms),
			},
		}))
	}

	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"formulas": structpb.NewListValue(&structpb.ListValue{Values: values}),
		},
	}
}

// SummariesFromStruct decodes a registry listing.
func SummariesFromStruct(doc *structpb.Struct) ([]formula.Summary, error) {
	values := doc.GetFields()["formulas"].GetListValue().GetValues()
	summaries := make([]formula.Summary, 0, len(values))

	for _, value := range values {
		fields := value.GetStructValue().GetFields()

		summary := formula.Summary{
			Name:        fields["name"].GetStringValue(),
			Description: fields["description"].GetStringValue(),
			Homepage:    fields["homepage"].GetStringValue(),
			Latest:      fields["latest"].GetStringValue(),
			Versions:    fromStringList(fields["versions"]),
		}

		for _, raw := range fromStringList(fields["platforms"]) {
			target, err := formula.ParseTarget(raw)
			if err != nil {
				return nil, fmt.Errorf("formula %s: %w", summary.Name, err)
			}

			summary.Platforms = append(summary.Platforms, target)
		}

		summaries = append(summaries, summary)
	}

	return summaries, nil
}

func smokeTestToStruct(test formula.SmokeTest) *structpb.Struct {
	codes := make([]*structpb.Value, 0, len(test.ExitCodes))
	for _, code := range test.ExitCodes {
		codes = append(codes, structpb.NewNumberValue(float64(code)))
	}

	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"args":       stringList(test.Args),
			"exit_codes": structpb.NewListValue(&structpb.ListValue{Values: codes}),
			"marker":     structpb.NewStringValue(test.Marker),
		},
	}
}

func smokeTestFromStruct(doc *structpb.Struct) formula.SmokeTest {
	fields := doc.GetFields()

	var test formula.SmokeTest

	test.Args = fromStringList(fields["args"])

	for _, v := range fields["exit_codes"].GetListValue().GetValues() {
		test.ExitCodes = append(test.ExitCodes, int(v.GetNumberValue()))
	}

	test.Marker = fields["marker"].GetStringValue()

	return test
}

func stringList(items []string) *structpb.Value {
	values := make([]*structpb.Value, 0, len(items))
	for _, item := range items {
		values = append(values, structpb.NewStringValue(item))
	}

	return structpb.NewListValue(&structpb.ListValue{Values: values})
}

func fromStringList(value *structpb.Value) []string {
	var items []string
	for _, v := range value.GetListValue().GetValues() {
		items = append(items, v.GetStringValue())
	}

	return items
}
