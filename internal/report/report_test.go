package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeReport(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestGet(t *testing.T) {
	for _, name := range Names() {
		p, err := Get(name)
		require.NoError(t, err)
		assert.Equal(t, name, p.Name())
	}

	p, err := Get("Bandit")
	require.NoError(t, err)
	assert.Equal(t, "bandit", p.Name())

	_, err = Get("pylint")
	assert.Error(t, err)
	assert.Len(t, Names(), 8)
}

func TestBanditParser(t *testing.T) {
	path := writeReport(t, t.TempDir(), "CWE-89_DS-1_vul.json", `{
		"errors": [],
		"results": [
			{"test_name": "hardcoded_sql_expressions", "test_id": "B608", "filename": "/target/app.py", "line_number": 42, "issue_severity": "MEDIUM"},
			{"test_name": "blacklist", "test_id": "B403", "filename": "/target/util.py", "line_number": 3}
		]
	}`)

	p := &BanditParser{}
	findings, err := p.Findings(path)
	require.NoError(t, err)
	assert.Equal(t, []Finding{
		{Description: "hardcoded_sql_expressions", File: "/target/app.py", Line: 42},
		{Description: "blacklist", File: "/target/util.py", Line: 3},
	}, findings)

	descs, err := p.Descriptions(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"hardcoded_sql_expressions", "blacklist"}, descs)
}

func TestBanditParser_Malformed(t *testing.T) {
	path := writeReport(t, t.TempDir(), "x_vul.json", `{"results": [`)
	_, err := (&BanditParser{}).Findings(path)
	assert.Error(t, err)
}

func TestSemgrepParser(t *testing.T) {
	path := writeReport(t, t.TempDir(), "x_vul.json", `{
		"results": [
			{
				"check_id": "python.flask.security.injection.tainted-sql-string.tainted-sql-string",
				"path": "/target/app.py",
				"start": {"line": 14, "col": 5},
				"extra": {"metadata": {"category": "security"}}
			},
			{
				"check_id": "python.lang.best-practice.open-never-closed",
				"path": "/target/app.py",
				"start": {"line": 20},
				"extra": {"metadata": {"category": "best-practice"}}
			},
			{
				"check_id": "eval-use",
				"path": "/target/app.py",
				"start": {"line": 30},
				"extra": {"metadata": {"category": "security"}}
			}
		]
	}`)

	p := &SemgrepParser{}
	findings, err := p.Findings(path)
	require.NoError(t, err)
	assert.Equal(t, []Finding{
		{Description: "tainted-sql-string.tainted-sql-string", File: "/target/app.py", Line: 14},
		{Description: "eval-use", File: "/target/app.py", Line: 30},
	}, findings)

	descs, err := p.Descriptions(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"tainted-sql-string.tainted-sql-string", "best-practice.open-never-closed", "eval-use"}, descs)
}

func TestCodeqlParser(t *testing.T) {
	path := writeReport(t, t.TempDir(), "x_vul.csv",
		`"SQL query built from user-controlled sources","Building a SQL query from user-controlled sources is vulnerable","error","This SQL query depends on a user-provided value.","/app.py","42","9","42","30"
"Uncontrolled command line","Using externally controlled strings in a command line","error","This command depends on a user-provided value.","/lib/run.py","7","5","7","20"
`)

	p := &CodeqlParser{}
	findings, err := p.Findings(path)
	require.NoError(t, err)
	assert.Equal(t, []Finding{
		{Description: "SQL query built from user-controlled sources", File: "app.py", Line: 42},
		{Description: "Uncontrolled command line", File: "lib/run.py", Line: 7},
	}, findings)
}

func TestCodeqlParser_StripsOneSlash(t *testing.T) {
	path := writeReport(t, t.TempDir(), "x_vul.csv",
		`"Code injection","d","error","m","//srv/app.py","3","1","3","9"
"Code injection","d","error","m","pkg/app.py","4","1","4","9"
`)

	findings, err := (&CodeqlParser{}).Findings(path)
	require.NoError(t, err)
	require.Len(t, findings, 2)
	assert.Equal(t, "/srv/app.py", findings[0].File)
	assert.Equal(t, "pkg/app.py", findings[1].File)
}

func TestCodeqlParser_ShortRow(t *testing.T) {
	path := writeReport(t, t.TempDir(), "x_vul.csv", `"a","b","c"`+"\n")
	_, err := (&CodeqlParser{}).Findings(path)
	assert.Error(t, err)
}

func TestSnykParser(t *testing.T) {
	path := writeReport(t, t.TempDir(), "x_vul.json", `{
		"version": "2.1.0",
		"runs": [{
			"tool": {"driver": {"name": "SnykCode"}},
			"results": [
				{
					"ruleId": "python/Sqli",
					"message": {"text": "Unsanitized input flows into execute", "markdown": "Unsanitized input from {0} {1} into {2}, where it is used in an SQL query."},
					"locations": [{"physicalLocation": {"artifactLocation": {"uri": "app.py"}, "region": {"startLine": 42}}}]
				},
				{
					"ruleId": "javascript/XSS",
					"message": {"text": "x", "markdown": "Unsanitized input reaches the DOM."},
					"locations": [{"physicalLocation": {"artifactLocation": {"uri": "static/app.js"}, "region": {"startLine": 3}}}]
				}
			]
		}]
	}`)

	p := &SnykParser{}
	findings, err := p.Findings(path)
	require.NoError(t, err)
	assert.Equal(t, []Finding{
		{Description: "Unsanitized input from {0} {1} into {2}, where it is used in an SQL query.", File: "app.py", Line: 42},
	}, findings)

	descs, err := p.Descriptions(path)
	require.NoError(t, err)
	assert.Len(t, descs, 2)
}

const devskimBody = `{
	"version": "2.1.0",
	"runs": [{
		"tool": {"driver": {"name": "DevSkim"}},
		"results": [
			{
				"ruleId": "DS126858",
				"message": {"text": "Weak/Broken Hash Algorithm"},
				"locations": [{"physicalLocation": {"artifactLocation": {"uri": "file:///target/app.py"}, "region": {"startLine": 12, "sourceLanguage": "python"}}}]
			},
			{
				"ruleId": "DS137138",
				"message": {"text": "Insecure URL"},
				"locations": [{"physicalLocation": {"artifactLocation": {"uri": "file:///target/templates/index.html"}, "region": {"startLine": 5, "sourceLanguage": "html"}}}]
			}
		]
	}]
}`

func TestDevSkimParser(t *testing.T) {
	path := writeReport(t, t.TempDir(), "x_vul.json", devskimBody)

	p := &DevSkimParser{}
	findings, err := p.Findings(path)
	require.NoError(t, err)
	assert.Equal(t, []Finding{
		{Description: "Weak/Broken Hash Algorithm", File: "/target/app.py", Line: 12},
	}, findings)

	descs, err := p.Descriptions(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Weak/Broken Hash Algorithm", "Insecure URL"}, descs)
}

func TestDevSkimParser_RecoversPrefixedBody(t *testing.T) {
	path := writeReport(t, t.TempDir(), "x_vul.json",
		"Analyzing 3 files...\nwarn: skipped binary file\n"+devskimBody)

	findings, err := (&DevSkimParser{}).Findings(path)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, 12, findings[0].Line)
}

func TestDevSkimParser_RecoversSurroundedBody(t *testing.T) {
	path := writeReport(t, t.TempDir(), "x_vul.json",
		"Analyzing...\n"+devskimBody+"\nAnalysis complete: 1 issue\n")

	findings, err := (&DevSkimParser{}).Findings(path)
	require.NoError(t, err)
	assert.Equal(t, []Finding{
		{Description: "Weak/Broken Hash Algorithm", File: "/target/app.py", Line: 12},
	}, findings)
}

func TestRecoverJSON(t *testing.T) {
	body, err := recoverJSON([]byte("banner\n  {\"a\": {\"b\": 1}}\n}\ntrailer {x}\n"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": {"b": 1}}`, string(body))

	_, err = recoverJSON([]byte("no json here\n"))
	assert.Error(t, err)

	_, err = recoverJSON([]byte("banner\n{\"a\": \n"))
	assert.Error(t, err)
}

func TestDevSkimParser_Unrecoverable(t *testing.T) {
	path := writeReport(t, t.TempDir(), "x_vul.json", "Analyzing...\n{\"runs\": [\n")
	_, err := (&DevSkimParser{}).Findings(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected EOF")
}

func TestBearerParser(t *testing.T) {
	path := writeReport(t, t.TempDir(), "x_vul.json", `{
		"high": [
			{"id": "python_lang_sql_injection", "title": "SQL injection", "full_filename": "/target/app.py", "filename": "app.py", "line_number": 42}
		],
		"critical": [
			{"id": "python_lang_os_command_injection", "full_filename": "/target/run.py", "line_number": 8},
			{"id": "python_lang_path_traversal", "filename": "files.py", "line_number": 3}
		]
	}`)

	findings, err := (&BearerParser{}).Findings(path)
	require.NoError(t, err)
	assert.Equal(t, []Finding{
		{Description: "python_lang_sql_injection", File: "/target/app.py", Line: 42},
		{Description: "python_lang_os_command_injection", File: "/target/run.py", Line: 8},
		{Description: "python_lang_path_traversal", File: "files.py", Line: 3},
	}, findings)
}

func TestBearerParser_Empty(t *testing.T) {
	path := writeReport(t, t.TempDir(), "x_fix.json", "")
	findings, err := (&BearerParser{}).Findings(path)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestDlintParser(t *testing.T) {
	path := writeReport(t, t.TempDir(), "x_vul.txt", `/target/app.py:14: DUO138 insecure "re" pattern
/target/app.py:30:9: DUO104 insecure use of "eval"

2 errors found
`)

	findings, err := (&DlintParser{}).Findings(path)
	require.NoError(t, err)
	assert.Equal(t, []Finding{
		{Description: `DUO138 insecure "re" pattern`, File: "/target/app.py", Line: 14},
		{Description: `DUO104 insecure use of "eval"`, File: "/target/app.py", Line: 30},
	}, findings)
}

func TestPysaParser(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "CWE-78_DS-3_vul")
	writeReport(t, dir, "errors.json", `[
		{"line": 20, "column": 8, "path": "helpers.py", "code": 5001, "name": "Possible shell injection", "define": "helpers.run"},
		{"line": 9, "column": 4, "path": "app.py", "code": 5005, "name": "Code injection"}
	]`)
	writeReport(t, dir, "result.sarif", `{
		"version": "2.1.0",
		"runs": [{
			"tool": {"driver": {"name": "Pysa"}},
			"results": [{
				"ruleId": "5001",
				"message": {"text": "Possible shell injection"},
				"locations": [{"physicalLocation": {"artifactLocation": {"uri": "helpers.py"}, "region": {"startLine": 20}}}],
				"codeFlows": [{"threadFlows": [{"locations": [
					{"location": {"physicalLocation": {"artifactLocation": {"uri": "app.py"}, "region": {"startLine": 5}}}},
					{"location": {"physicalLocation": {"artifactLocation": {"uri": "app.py"}, "region": {"startLine": 6}}}},
					{"location": {"physicalLocation": {"artifactLocation": {"uri": "helpers.py"}, "region": {"startLine": 20}}}}
				]}]}]
			}]
		}]
	}`)

	p := &PysaParser{}
	assert.Equal(t, "", p.Ext())

	findings, err := p.Findings(dir)
	require.NoError(t, err)
	assert.Equal(t, []Finding{
		{Description: "Possible shell injection", File: "helpers.py", Line: 20},
		{Description: "Possible shell injection", File: "helpers.py", Line: 20},
		{Description: "Possible shell injection", File: "app.py", Line: 6},
		{Description: "Possible shell injection", File: "app.py", Line: 5},
		{Description: "Code injection", File: "app.py", Line: 9},
	}, findings)

	descs, err := p.Descriptions(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"Possible shell injection", "Code injection"}, descs)
}

func TestPysaParser_WithoutSarif(t *testing.T) {
	dir := t.TempDir()
	writeReport(t, dir, "errors.json", `[{"line": 3, "path": "app.py", "code": 5001, "name": "Possible shell injection"}]`)

	findings, err := (&PysaParser{}).Findings(dir)
	require.NoError(t, err)
	assert.Equal(t, []Finding{{Description: "Possible shell injection", File: "app.py", Line: 3}}, findings)
}

func TestIsReportAndStem(t *testing.T) {
	dir := t.TempDir()
	writeReport(t, dir, "a_vul.json", "{}")
	writeReport(t, dir, "notes.txt", "")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "b_fix"), 0755))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var bandit, pysa []string
	for _, e := range entries {
		if IsReport(&BanditParser{}, e) {
			bandit = append(bandit, Stem(&BanditParser{}, e.Name()))
		}
		if IsReport(&PysaParser{}, e) {
			pysa = append(pysa, Stem(&PysaParser{}, e.Name()))
		}
	}
	assert.Equal(t, []string{"a_vul"}, bandit)
	assert.Equal(t, []string{"b_fix"}, pysa)
}
