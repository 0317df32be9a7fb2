/***
Copyright 2014 Cisco Systems Inc. All rights reserved.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at
http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"

	"github.com/contiv/ofdpa/core"

	log "github.com/Sirupsen/logrus"
	"github.com/gorilla/mux"
)

type httpAPIFunc func(w http.ResponseWriter, r *http.Request, vars map[string]string) (interface{}, error)

// MakeHTTPHandler is a simple Wrapper for http handlers. A handler error
// that wraps core.ErrNotFound is returned as 404.
func MakeHTTPHandler(handlerFunc httpAPIFunc) http.HandlerFunc {
	// Create a closure and return an anonymous function
	return func(w http.ResponseWriter, r *http.Request) {
		// Call the handler
		resp, err := handlerFunc(w, r, mux.Vars(r))
		if err != nil {
			log.Errorf("Handler for %s %s returned error: %s", r.Method, r.URL, err)

			if errors.Is(err, core.ErrNotFound) {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		// Send HTTP response as Json
		if err := writeJSON(w, http.StatusOK, resp); err != nil {
			log.Errorf("Error writing response for %s. Err: %v", r.URL, err)
		}
	}
}

// writeJSON: writes the value v to the http response stream as json with standard
// json encoding.
func writeJSON(w http.ResponseWriter, code int, v interface{}) error {
	// Set content type as json
	w.Header().Set("Content-Type", "application/json")

	// write the HTTP status code
	w.WriteHeader(code)

	// Write the Json output
	return json.NewEncoder(w).Encode(v)
}

// UnknownAction is a catchall handler for unrouted requests
func UnknownAction(w http.ResponseWriter, r *http.Request) {
	log.Infof("Unknown action at %q", r.URL.Path)
	http.NotFound(w, r)
}

// HTTPGet performs http GET operation and decodes the json response
func HTTPGet(url string, resp interface{}) error {
	res, err := http.Get(url)
	if err != nil {
		log.Errorf("Error during http GET. Err: %v", err)
		return err
	}

	defer res.Body.Close()

	// Read the entire response
	body, err := ioutil.ReadAll(res.Body)
	if err != nil {
		log.Errorf("Error during ioutil readall. Err: %v", err)
		return err
	}

	if res.StatusCode != http.StatusOK {
		log.Debugf("HTTP error response. Status: %s, Body: %s", res.Status, body)
		return fmt.Errorf("HTTP error response. Status: %s, StatusCode: %d", res.Status, res.StatusCode)
	}

	// Convert response json to struct
	if err := json.Unmarshal(body, resp); err != nil {
		log.Errorf("Error during json unmarshall. Err: %v", err)
		return err
	}

	log.Debugf("Results for (%s): %+v\n", url, resp)

	return nil
}
