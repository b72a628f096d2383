package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"drillwatch.org/drillwatch/security"
)

func main() {
	godotenv.Load()

	deviceID := flag.String("device", "", "device id to enroll")
	operator := flag.String("operator", "", "operator name")
	district := flag.String("district", "", "district the device operates in")
	expires := flag.Int64("expires", 180*24*3600, "token lifetime in seconds")
	flag.Parse()

	if *deviceID == "" {
		fmt.Fprintln(os.Stderr, "-device is required")
		os.Exit(1)
	}

	secret := os.Getenv("DRILLWATCH_SIGNING_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "DRILLWATCH_SIGNING_SECRET is not set")
		os.Exit(1)
	}

	token, err := security.CreateDeviceToken(&security.DeviceIdentity{
		DeviceID: *deviceID,
		Operator: *operator,
		District: *district,
	}, secret, *expires)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
