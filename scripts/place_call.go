// Command place_call asks the backend to dial a phone number through
// the phone fallback endpoint, using the same config file as the front
// end for the backend base URL.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/ozzylabs/ozzy/pkg/register"
	"github.com/spf13/viper"
)

func main() {
	configPath := flag.String("config", "examples/kiosk/config.yaml", "")
	agentID := flag.String("agent", "", "")
	to := flag.String("to", "", "")
	flag.Parse()
	if *to == "" {
		fmt.Println("usage: place_call -to=+123 [-agent=...] [-config=...]")
		os.Exit(1)
	}

	v := viper.New()
	v.SetConfigFile(*configPath)
	if err := v.ReadInConfig(); err != nil {
		fmt.Println("config error:", err)
		os.Exit(1)
	}
	agent := *agentID
	if agent == "" {
		agent = os.ExpandEnv(v.GetString("agent_id"))
	}
	if agent == "" {
		fmt.Println("agent id is empty")
		os.Exit(1)
	}

	client := register.NewClient(register.Config{
		BaseURL:   os.ExpandEnv(v.GetString("backend.base_url")),
		TimeoutMS: v.GetInt("backend.timeout_ms"),
	}, nil)
	resp, err := client.CreatePhoneCall(context.Background(), agent, *to)
	if err != nil {
		fmt.Println("call error:", err)
		os.Exit(1)
	}
	fmt.Println("call_sid:", resp.CallSID)
}
