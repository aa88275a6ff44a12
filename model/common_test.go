package model

import (
	"os"
	"testing"
)

func mustCreateModel(t *testing.T, fileName string) *Model {
	fileName = "../test/cmmn/" + fileName

	yamlFile, err := os.Open(fileName)
	if err != nil {
		t.Fatalf("failed to open YAML file %s: %v", fileName, err)
	}

	defer yamlFile.Close()

	model, err := New(yamlFile)
	if err != nil {
		t.Fatalf("failed to parse YAML: %v", err)
	}

	return model
}

func mustFailModel(t *testing.T, fileName string) Errors {
	fileName = "../test/cmmn/" + fileName

	yamlFile, err := os.Open(fileName)
	if err != nil {
		t.Fatalf("failed to open YAML file %s: %v", fileName, err)
	}

	defer yamlFile.Close()

	_, err = New(yamlFile)
	if err == nil {
		t.Fatalf("expected model %s to be invalid", fileName)
	}

	errs, ok := err.(Errors)
	if !ok {
		t.Fatalf("expected model errors, but got %T: %v", err, err)
	}

	return errs
}
