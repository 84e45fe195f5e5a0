package util

import (
	"os"

	jsoniter "github.com/json-iterator/go"
)

var qjson = jsoniter.ConfigCompatibleWithStandardLibrary

// WriteJSON writes the JSON representation of obj to filename.
func WriteJSON(filename string, obj any) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()
	encoder := qjson.NewEncoder(file)
	encoder.SetIndent("", "\t")
	err = encoder.Encode(obj)
	return err
}

// ReadJSON reads the JSON representation of an object from filename.
func ReadJSON(filename string, obj any) (err error) {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()
	decoder := qjson.NewDecoder(file)
	err = decoder.Decode(obj)
	return err
}
